// Package errors provides structured boundary errors for boardrules.
//
// Rule evaluation never returns these: schema problems and blocked moves are
// reported as data. Codes cover the I/O edges only (bundle decoding, storage,
// scenario assertions).
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Bundle errors
	CodeBundleInvalidDocument  Code = "BUNDLE_INVALID_DOCUMENT"
	CodeBundleUnknownValueKind Code = "BUNDLE_UNKNOWN_VALUE_KIND"
	CodeBundleUnknownRole      Code = "BUNDLE_UNKNOWN_ROLE"
	CodeBundleUnknownTrigger   Code = "BUNDLE_UNKNOWN_TRIGGER"
	CodeBundleUnknownOperation Code = "BUNDLE_UNKNOWN_OPERATION"
	CodeBundleInvalidEffect    Code = "BUNDLE_INVALID_EFFECT"
	CodeBundleInvalidExpr      Code = "BUNDLE_INVALID_EXPRESSION"
	CodeBundleDuplicateName    Code = "BUNDLE_DUPLICATE_NAME"
	CodeBundleUnknownUnit      Code = "BUNDLE_UNKNOWN_UNIT"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeStorageCorrupt     Code = "STORAGE_CORRUPT_DOCUMENT"
	CodeWorkspaceNameEmpty Code = "WORKSPACE_NAME_EMPTY"

	// Scenario errors
	CodeScenarioAssertionFailed Code = "SCENARIO_ASSERTION_FAILED"
	CodeScenarioUnknownStep     Code = "SCENARIO_UNKNOWN_STEP"
)
