package runtime

import (
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/louisbranch/boardrules/internal/ontology/runtime"

// Metrics holds the engine's OpenTelemetry instruments.
type Metrics struct {
	// Passes counts stages that actually ran. Attribute: stage.
	Passes metric.Int64Counter
	// ConstraintChanges counts derived constraint writes. Attribute: change.
	ConstraintChanges metric.Int64Counter
	// SchemaErrors counts schema findings per pass. Attribute: kind.
	SchemaErrors metric.Int64Counter
	// Destinations records the valid destination count per move computation.
	Destinations metric.Int64Histogram
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(instrumentationName)
	var err error
	met := &Metrics{}
	if met.Passes, err = m.Int64Counter("rules.passes",
		metric.WithDescription("Rule engine stages that ran, by stage."),
	); err != nil {
		return nil, err
	}
	if met.ConstraintChanges, err = m.Int64Counter("rules.autogen.changes",
		metric.WithDescription("Derived constraints inserted, updated or retracted."),
	); err != nil {
		return nil, err
	}
	if met.SchemaErrors, err = m.Int64Counter("rules.schema.errors",
		metric.WithDescription("Schema findings reported per validation pass, by kind."),
	); err != nil {
		return nil, err
	}
	if met.Destinations, err = m.Int64Histogram("rules.moves.destinations",
		metric.WithDescription("Valid destinations per move computation."),
	); err != nil {
		return nil, err
	}
	return met, nil
}
