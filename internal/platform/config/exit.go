package config

import (
	"fmt"
	"io"
	"os"
)

// exit is swapped in tests.
var exit = os.Exit

// Exitf writes a formatted error message to stderr and exits with code 1.
// Command mains use it for every fatal startup failure.
func Exitf(format string, args ...any) {
	exitf(os.Stderr, format, args...)
}

func exitf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	exit(1)
}
