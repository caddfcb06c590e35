package schema

import (
	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
)

// Validator reruns Check only when the ontology or the type registry moved
// since the previous pass.
type Validator struct {
	seen     bool
	ontology ontology.Version
	types    uint64
	last     Validation
}

// Validate returns the current validation and whether a pass actually ran.
func (v *Validator) Validate(reg *ontology.Registry, types *entity.TypeRegistry) (Validation, bool) {
	ov, tv := reg.Version(), types.Version()
	if v.seen && ov == v.ontology && tv == v.types {
		return v.last, false
	}
	v.last = Check(reg, types)
	v.ontology, v.types, v.seen = ov, tv, true
	return v.last, true
}

// Last returns the most recent validation without checking inputs.
func (v *Validator) Last() Validation { return v.last }

// Invalidate forces the next Validate call to run.
func (v *Validator) Invalidate() { v.seen = false }
