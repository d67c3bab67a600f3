package goverlay

import (
	"errors"
	"io"

	"github.com/reoring/goverlay/i18n"
	eng "github.com/reoring/goverlay/internal/engine"
)

// Decode reads the next document of src. It fails with a parse_error issue
// when src holds no further document; use DecodeAll for streams.
func Decode(src Source, opt DecodeOpt) (any, error) {
	v, err := eng.Decode(enforce(src, opt), toEngineNumbers(opt.Numbers))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, singleIssue(CodeParseError, "no document in input")
		}
		return nil, toIssues(err, src)
	}
	return v, nil
}

// DecodeAll reads every document of src in order. An empty input yields no
// documents and no error.
func DecodeAll(src Source, opt DecodeOpt) ([]any, error) {
	ts := enforce(src, opt)
	mode := toEngineNumbers(opt.Numbers)
	var out []any
	for {
		v, err := eng.Decode(ts, mode)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, toIssues(err, src)
		}
		out = append(out, v)
	}
}

func enforce(src Source, opt DecodeOpt) eng.TokenSource {
	var sink func(eng.SimpleIssue)
	if opt.OnIssue != nil {
		sink = func(si eng.SimpleIssue) { opt.OnIssue(fromSimpleIssue(si)) }
	}
	return eng.WrapWithEnforcement(src.tokens(), eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		IssueSink:   sink,
	})
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Error:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

func toEngineNumbers(m NumberMode) eng.NumberMode {
	switch m {
	case NumberFloat64:
		return eng.NumberFloat64
	case NumberJSONNumber:
		return eng.NumberJSONNumber
	default:
		return eng.NumberNative
	}
}

func fromSimpleIssue(si eng.SimpleIssue) Issue {
	return Issue{Path: normalizePath(si.Path), Code: si.Code, Message: i18n.Detail(si.Code, si.Message), Offset: si.Offset, Params: si.Params}
}

func toIssues(err error, src Source) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return AppendIssues(nil, fromSimpleIssue(ie.SimpleIssue))
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return AppendIssues(nil, Issue{Path: "/", Code: CodeTruncated, Message: i18n.Detail(CodeTruncated, "unexpected end of input"), Cause: err, Offset: src.Location()})
	}
	return AppendIssues(nil, Issue{Path: "/", Code: CodeParseError, Message: i18n.Detail(CodeParseError, err.Error()), Cause: err, Offset: src.Location()})
}
