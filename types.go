package goverlay

import "fmt"

// NumberMode dictates how decoded numbers are represented.
type NumberMode int

const (
	NumberNative     NumberMode = iota // int64 when integral, float64 otherwise.
	NumberFloat64                      // Always float64 (with potential precision loss).
	NumberJSONNumber                   // Preserve the number text as a json.Number-like value.
)

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Ignore:
		return "ignore"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity is the inverse of Severity.String. The empty string is Error.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "ignore":
		return Ignore, nil
	case "warn":
		return Warn, nil
	case "error", "":
		return Error, nil
	default:
		return Ignore, fmt.Errorf("unknown severity %q (want ignore, warn or error)", s)
	}
}

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn or Error (duplicate mapping keys).
}

// DecodeOpt bundles decoding options.
type DecodeOpt struct {
	Strictness Strictness
	MaxDepth   int   // 0 means unlimited.
	MaxBytes   int64 // 0 means unlimited.
	Numbers    NumberMode
	// OnIssue receives non-fatal issues, such as duplicate keys under Warn.
	OnIssue func(Issue)
}
