package testutils

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mcuadros/go-defaults"
	"github.com/srg/blepool/internal/device"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// PresencePlaceholder in expected JSON matches any actual value.
const PresencePlaceholder = "<<PRESENCE>>"

type JSONAssertOptions struct {
	AllowPresencePlaceholder bool     `default:"true"`
	IgnoredFields            []string `default:""`
	IgnoreArrayOrder         bool     `default:"false"`
}

// Option is a functional option for configuring JSONAsserter
type Option func(*JSONAssertOptions)

type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

// NewJSONAsserter creates a new JSONAsserter with default options
func NewJSONAsserter(t TestingT) *JSONAsserter {
	opts := JSONAssertOptions{}
	defaults.SetDefaults(&opts)
	return &JSONAsserter{
		t:       t,
		options: opts,
	}
}

// WithOptions applies functional options to the JSONAsserter
func (ja *JSONAsserter) WithOptions(opts ...Option) *JSONAsserter {
	for _, opt := range opts {
		opt(&ja.options)
	}
	return ja
}

// Assert compares actualJSON against expectedJSON
func (ja *JSONAsserter) Assert(actualJSON, expectedJSON string) {
	if diff := ja.diff(actualJSON, expectedJSON); diff != "" {
		ja.t.Errorf("JSON assertion failed:\n%s", diff)
	}
}

// AssertHandles compares the handles, rendered as key/address/state objects, against expectedJSON.
func (ja *JSONAsserter) AssertHandles(handles []device.Handle, expectedJSON string) {
	ja.Assert(HandlesToJSON(handles), expectedJSON)
}

// HandlesToJSON renders handles as a JSON array of key/address/state objects.
func HandlesToJSON(handles []device.Handle) string {
	type handleJSON struct {
		Key     string                 `json:"key"`
		Address string                 `json:"address"`
		State   device.ConnectionState `json:"state"`
	}

	out := make([]handleJSON, 0, len(handles))
	for _, h := range handles {
		out = append(out, handleJSON{
			Key:     h.DeviceKey(),
			Address: h.Device().Address(),
			State:   h.ConnectionState(),
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func (ja *JSONAsserter) diff(actualJSON, expectedJSON string) string {
	var expected, actual interface{}
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actualJSON), &actual); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	// gojsondiff compares objects only; wrap root-level arrays
	if isArray(expected) && isArray(actual) {
		expected = map[string]interface{}{"array": expected}
		actual = map[string]interface{}{"array": actual}
	}

	if ja.options.AllowPresencePlaceholder {
		replacePresenceWithActual(expected, actual)
	}
	// Ignored fields go before sorting so they do not affect element order.
	if len(ja.options.IgnoredFields) > 0 {
		removeIgnoredFields(expected, actual, ja.options.IgnoredFields)
	}
	if ja.options.IgnoreArrayOrder {
		sortArrays(expected)
		sortArrays(actual)
	}

	expectedBytes, _ := json.Marshal(expected)
	actualBytes, _ := json.Marshal(actual)

	diff, err := gojsondiff.New().Compare(expectedBytes, actualBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	f := formatter.NewAsciiFormatter(expected, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       false,
	})
	diffString, _ := f.Format(diff)
	return diffString
}

// replacePresenceWithActual copies actual values for PresencePlaceholder entries
func replacePresenceWithActual(expected, actual interface{}) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return
		}
		for k := range exp {
			if s, ok := exp[k].(string); ok && s == PresencePlaceholder {
				exp[k] = act[k]
			} else {
				replacePresenceWithActual(exp[k], act[k])
			}
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return
		}
		for i := range exp {
			if i < len(act) {
				replacePresenceWithActual(exp[i], act[i])
			}
		}
	}
}

// removeIgnoredFields drops the named fields from both sides, recursively
func removeIgnoredFields(expected, actual interface{}, ignoredFields []string) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return
		}
		for _, field := range ignoredFields {
			delete(exp, field)
			delete(act, field)
		}
		for k := range exp {
			if actVal, exists := act[k]; exists {
				removeIgnoredFields(exp[k], actVal, ignoredFields)
			}
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return
		}
		for i := range exp {
			if i < len(act) {
				removeIgnoredFields(exp[i], act[i], ignoredFields)
			}
		}
	}
}

// WithIgnoredFields sets a list of field names to ignore during comparison
func WithIgnoredFields(fields ...string) Option {
	return func(opts *JSONAssertOptions) {
		opts.IgnoredFields = fields
	}
}

// WithIgnoreArrayOrder sets whether to ignore array element order during comparison
func WithIgnoreArrayOrder(ignore bool) Option {
	return func(opts *JSONAssertOptions) {
		opts.IgnoreArrayOrder = ignore
	}
}

// WithAllowPresencePlaceholder sets whether PresencePlaceholder is honoured
func WithAllowPresencePlaceholder(allow bool) Option {
	return func(opts *JSONAssertOptions) {
		opts.AllowPresencePlaceholder = allow
	}
}

func isArray(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

// sortArrays sorts arrays by the JSON form of their elements, recursively.
func sortArrays(data interface{}) {
	switch v := data.(type) {
	case map[string]interface{}:
		for key := range v {
			sortArrays(v[key])
		}
	case []interface{}:
		sort.Slice(v, func(i, j int) bool {
			iJSON, _ := json.Marshal(v[i])
			jJSON, _ := json.Marshal(v[j])
			return string(iJSON) < string(jJSON)
		})
		for _, elem := range v {
			sortArrays(elem)
		}
	}
}
