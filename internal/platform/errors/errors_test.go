package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load: %w", WithMetadata(CodeBundleUnknownRole, "unknown role", map[string]string{"role": "pawn"}))
	if !stderrors.Is(err, New(CodeBundleUnknownRole, "")) {
		t.Fatal("expected code match through wrap chain")
	}
	if stderrors.Is(err, New(CodeBundleUnknownTrigger, "")) {
		t.Fatal("expected different code not to match")
	}
	if got := CodeOf(err); got != CodeBundleUnknownRole {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeBundleUnknownRole)
	}
}

func TestWrapIncludesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeStorageCorrupt, "decode relation", cause)
	if err.Error() != "decode relation: disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeUnknown)
	}
}
