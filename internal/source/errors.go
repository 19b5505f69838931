package source

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for structural load failures.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeScanError  = "E002" // Directory scan or read error
	ErrCodeNoRegistry = "E003" // dataset.json not found
	ErrCodeShape      = "E004" // Document is not valid JSON or has the wrong shape
	ErrCodeNotFound   = "E005" // Root or version not found
)

// LoadError is a structural failure reading a dataset root.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
