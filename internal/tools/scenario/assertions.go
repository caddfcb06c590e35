package scenario

import (
	"fmt"
	"log"

	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
)

// AssertionMode selects how failed expectations are handled.
type AssertionMode int

const (
	// AssertionStrict fails the scenario on the first unmet expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs unmet expectations and keeps going.
	AssertionLogOnly
)

// Assertions reports scenario failures according to Mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger
}

// Failf always returns an error. Use it for broken scenarios, not unmet
// expectations.
func (a Assertions) Failf(format string, args ...any) error {
	return apperrors.New(apperrors.CodeScenarioAssertionFailed, fmt.Sprintf(format, args...))
}

// Assertf returns an error in strict mode and logs otherwise.
func (a Assertions) Assertf(format string, args ...any) error {
	if a.Mode == AssertionStrict {
		return a.Failf(format, args...)
	}
	if a.Logger != nil {
		a.Logger.Printf("expectation failed: "+format, args...)
	}
	return nil
}
