// Package i18n localizes Issue messages.
package i18n

import "sync"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message. The "detail" entry
// carries the English context of a specific failure (for example,
// "expected bool" or "file does not exist").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dict = map[string]map[string]string{
	"en": {
		"parse_error":     "parse error",
		"duplicate_key":   "duplicate key",
		"truncated":       "input truncated",
		"max_depth":       "maximum nesting depth exceeded",
		"invalid_control": "invalid control value",
		"invalid_policy":  "invalid policy",
		"unknown_format":  "unknown format",
		"missing_layer":   "layer matches no file",
	},
	"ja": {
		"parse_error":     "解析エラー",
		"duplicate_key":   "キーが重複しています",
		"truncated":       "入力が途中で終わっています",
		"max_depth":       "ネストが深すぎます",
		"invalid_control": "制御キーの値が不正です",
		"invalid_policy":  "ポリシーが不正です",
		"unknown_format":  "未知の形式です",
		"missing_layer":   "レイヤーに一致するファイルがありません",
	},
}

// Message returns the English detail as is, so English output stays
// specific. Other languages prefix the localized summary.
func (t dictTranslator) Message(code string, data map[string]string) string {
	detail := data["detail"]
	base, ok := dict[t.lang][code]
	if t.lang == "en" {
		if detail != "" {
			return detail
		}
		if ok {
			return base
		}
		return code
	}
	if !ok {
		base = code
	}
	if detail != "" {
		return base + ": " + detail
	}
	return base
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// Languages lists the languages of the built-in Translator.
func Languages() []string { return []string{"en", "ja"} }

// SetLanguage switches the built-in Translator language ("en"/"ja").
// Unknown languages select English.
func SetLanguage(lang string) {
	if _, ok := dict[lang]; !ok {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}

// Detail is shorthand for T with only a detail entry.
func Detail(code, detail string) string {
	if detail == "" {
		return T(code, nil)
	}
	return T(code, map[string]string{"detail": detail})
}
