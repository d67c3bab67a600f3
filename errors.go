package goverlay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/goverlay/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeParseError     = "parse_error"
	CodeDuplicateKey   = "duplicate_key"
	CodeTruncated      = "truncated"
	CodeMaxDepth       = "max_depth"
	CodeInvalidControl = "invalid_control"
	CodeInvalidPolicy  = "invalid_policy"
	// Loader passes (file resolution)
	CodeUnknownFormat = "unknown_format"
	CodeMissingLayer  = "missing_layer"
)

// Issue represents a single reportable failure.
type Issue struct {
	Path    string // JSON Pointer (for example: /songs/2/$priority).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	Offset  int64 // Byte offset in the input source (-1 when unknown).
	// Params carries structured parameters (e.g., {"key":"$terminal", "got":"string"}).
	Params map[string]any
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_control at /a/$terminal: expected bool
		fmt.Fprintf(b, "%s at %s", it.Code, normalizePath(it.Path))
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes of the issues to errors.Is and errors.As.
func (iss Issues) Unwrap() []error {
	var errs []error
	for _, it := range iss {
		if it.Cause != nil {
			errs = append(errs, it.Cause)
		}
	}
	return errs
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

func singleIssue(code, msg string) Issues {
	return AppendIssues(nil, Issue{Path: "/", Code: code, Message: i18n.Detail(code, msg), Offset: -1})
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
