package recognizer

import (
	"strings"
	"unicode"
)

type Script int

const (
	ScriptNone Script = iota
	ScriptLatin
	ScriptCJK
)

func (s Script) String() string {
	switch s {
	case ScriptLatin:
		return "latin"
	case ScriptCJK:
		return "cjk"
	default:
		return "none"
	}
}

// Result is the merged transcription handed to the presentation step.
type Result struct {
	Text       string
	Confidence float64
	Script     Script
}

// Empty reports whether no text was found.
func (r Result) Empty() bool { return strings.TrimSpace(r.Text) == "" }

type Options struct {
	// Contrast is the linear contrast boost applied before inference.
	Contrast float64
	// CJKRatioThreshold is the CJK character share above which the CJK
	// output wins outright.
	CJKRatioThreshold float64
	// ConfidenceMargin is how far the Latin confidence must exceed the CJK
	// confidence for the Latin output to win.
	ConfidenceMargin float64
	// PreferCJK breaks the remaining ties.
	PreferCJK bool
}

var DefaultOptions = Options{
	Contrast:          0.25,
	CJKRatioThreshold: 0.2,
	ConfidenceMargin:  0.1,
	PreferCJK:         true,
}

func (o Options) withDefaults() Options {
	if o.CJKRatioThreshold <= 0 {
		o.CJKRatioThreshold = DefaultOptions.CJKRatioThreshold
	}
	if o.ConfidenceMargin <= 0 {
		o.ConfidenceMargin = DefaultOptions.ConfidenceMargin
	}
	return o
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// CJKRatio counts CJK characters against the encoded length of text, so a
// lone ideograph inside short Latin output stays under the threshold.
func CJKRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	n := 0
	for _, r := range text {
		if isCJK(r) {
			n++
		}
	}
	return float64(n) / float64(len(text))
}

// Merge applies, in order: blank fallback, CJK share, confidence margin,
// default bias.
func Merge(latin, cjk EngineOutput, opts Options) Result {
	opts = opts.withDefaults()
	l := Result{Text: latin.Text, Confidence: latin.Confidence(), Script: ScriptLatin}
	c := Result{Text: cjk.Text, Confidence: cjk.Confidence(), Script: ScriptCJK}

	lBlank, cBlank := l.Empty(), c.Empty()
	switch {
	case lBlank && cBlank:
		return Result{Script: ScriptNone}
	case cBlank:
		return l
	case lBlank:
		return c
	}

	if CJKRatio(c.Text) > opts.CJKRatioThreshold {
		return c
	}
	if l.Confidence-c.Confidence > opts.ConfidenceMargin {
		return l
	}
	if opts.PreferCJK {
		return c
	}
	return l
}
