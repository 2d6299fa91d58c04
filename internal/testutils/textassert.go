package testutils

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// TestingT is an interface that matches the methods we need from testing.T
type TestingT interface {
	Errorf(format string, args ...interface{})
}

// TextAssertOptions controls line normalization before comparing.
type TextAssertOptions struct {
	IgnoreTrailingWhitespace bool `default:"true"`
	IgnoreEmptyLines         bool `default:"false"`
	TrimSpace                bool `default:"true"`
	EnableColors             bool `default:"false"`
}

// TextOption is a functional option for configuring TextAsserter
type TextOption func(*TextAssertOptions)

// TextAsserter compares CLI output and reports mismatches as a unified diff.
type TextAsserter struct {
	t       TestingT
	options TextAssertOptions
}

// NewTextAsserter creates a new TextAsserter with default options
func NewTextAsserter(t TestingT) *TextAsserter {
	opts := TextAssertOptions{}
	defaults.SetDefaults(&opts)
	return &TextAsserter{t: t, options: opts}
}

// WithOptions applies functional options to the TextAsserter
func (ta *TextAsserter) WithOptions(opts ...TextOption) *TextAsserter {
	for _, opt := range opts {
		opt(&ta.options)
	}
	return ta
}

// Assert compares actual text against expected text
func (ta *TextAsserter) Assert(actual, expected string) {
	if diff := ta.diff(actual, expected); diff != "" {
		ta.t.Errorf("Text assertion failed:\n%s", diff)
	}
}

func (ta *TextAsserter) diff(actual, expected string) string {
	a, e := ta.normalize(actual), ta.normalize(expected)
	if a == e {
		return ""
	}

	edits := myers.ComputeEdits("", e, a)
	unified := fmt.Sprint(gotextdiff.ToUnified("expected", "actual", e, edits))
	if ta.options.EnableColors {
		unified = colorizeUnifiedDiff(unified)
	}
	return unified
}

// colorizeUnifiedDiff paints hunk headers, deletions and additions.
// Whitespace in changed lines is made visible (· for space, → for tab).
func colorizeUnifiedDiff(diff string) string {
	paint := func(attr color.Attribute, s string) string {
		c := color.New(attr)
		c.EnableColor()
		return c.Sprint(s)
	}
	visible := strings.NewReplacer(" ", "·", "\t", "→")

	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			lines[i] = paint(color.FgYellow, line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = paint(color.FgCyan, line)
		case strings.HasPrefix(line, "-"):
			lines[i] = paint(color.FgRed, visible.Replace(line))
		case strings.HasPrefix(line, "+"):
			lines[i] = paint(color.FgGreen, visible.Replace(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (ta *TextAsserter) normalize(text string) string {
	if ta.options.TrimSpace {
		text = strings.TrimSpace(text)
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if ta.options.IgnoreTrailingWhitespace {
			line = strings.TrimRight(line, " \t")
		}
		if ta.options.IgnoreEmptyLines && line == "" {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// WithIgnoreTrailingWhitespace sets whether to ignore trailing whitespace on each line
func WithIgnoreTrailingWhitespace(ignore bool) TextOption {
	return func(opts *TextAssertOptions) {
		opts.IgnoreTrailingWhitespace = ignore
	}
}

// WithIgnoreEmptyLines sets whether to ignore empty lines
func WithIgnoreEmptyLines(ignore bool) TextOption {
	return func(opts *TextAssertOptions) {
		opts.IgnoreEmptyLines = ignore
	}
}

// WithTrimSpace sets whether to trim leading and trailing whitespace from entire text
func WithTrimSpace(trim bool) TextOption {
	return func(opts *TextAssertOptions) {
		opts.TrimSpace = trim
	}
}

// WithEnableColors sets whether to enable colored diff output
func WithEnableColors(enable bool) TextOption {
	return func(opts *TextAssertOptions) {
		opts.EnableColors = enable
	}
}
