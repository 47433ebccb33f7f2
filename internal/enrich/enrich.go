// Package enrich builds the student-facing failure message for a failed assertion: where the test was, which function call produced the value, and an
// "Expected / Actual" block filled from a per-kind template.
package enrich

import (
	"bytes"
	"fmt"
	"reflect"
	"text/template"
)

// Kind is the kind of assertion that failed.
type Kind int

const (
	Equal Kind = iota
	NotEqual
	Greater
	GreaterOrEqual
	Less
	LessOrEqual
	AlmostEqual // rounded to Places decimal places
	NotAlmostEqual
	InDelta // within ±Delta
	NotInDelta
	True
	False
	Nil
	NotNil
	Same // same pointer
	NotSame
	IsType
	NotIsType
	In // element, container
	NotIn
	Contains // container, element
	NotContains
)

var templates = map[Kind]string{
	Equal:    "Expected return value: {{.Expected}}\nActual return value:   {{.Actual}}",
	NotEqual: "Expected return value to *not* be: {{.Expected}}\nActual return value: {{.Actual}}",

	Greater:        "Expected return value to be greater than: {{.Expected}}\nActual return value: {{.Actual}}",
	GreaterOrEqual: "Expected return value to be greater than or equal to: {{.Expected}}\nActual return value: {{.Actual}}",
	Less:           "Expected return value to be less than: {{.Expected}}\nActual return value: {{.Actual}}",
	LessOrEqual:    "Expected return value to be less than or equal to: {{.Expected}}\nActual return value: {{.Actual}}",

	AlmostEqual:    "Expected return value: {{.Expected}} once rounded to {{.Places}} places\nActual return value:   {{.Actual}} once rounded to {{.Places}} places",
	NotAlmostEqual: "Expected return value to *not* be: {{.Expected}} once rounded to {{.Places}} places\nActual return value: {{.Actual}} once rounded to {{.Places}} places",
	InDelta:        "Expected return value: {{.Expected}}±{{.Delta}}\nActual return value:   {{.Actual}}",
	NotInDelta:     "Expected return value to *not* be: {{.Expected}}±{{.Delta}}\nActual return value: {{.Actual}}",

	True:   "Expected return value to be true but was: {{.Actual}}",
	False:  "Expected return value to be false but was: {{.Actual}}",
	Nil:    "Expected return value to be nil but was: {{.Actual}}",
	NotNil: "Expected return value to *not* be nil but was: {{.Actual}}",

	Same:    "Expected return value: {{.Expected}} at address {{.ExpectedID}}\nActual return value:   {{.Actual}} at address {{.ActualID}}",
	NotSame: "Expected return value to *not* be: {{.Actual}} at address {{.ActualID}}",

	IsType:    "Expected return value to have type {{.Expected}}\nActual return value:   {{.Actual}} has type {{.ActualType}}",
	NotIsType: "Expected return value to *not* have type {{.Expected}}\nActual return value: {{.Actual}} has type {{.ActualType}}",

	In:          "Expected return value to be in: {{.Expected}}\nActual return value: {{.Actual}}",
	NotIn:       "Expected return value to *not* be in: {{.Expected}}\nActual return value: {{.Actual}}",
	Contains:    "Expected return value to contain: {{.Expected}}\nActual return value: {{.Actual}}",
	NotContains: "Expected return value to *not* contain: {{.Expected}}\nActual return value: {{.Actual}}",
}

var parsed = func() map[Kind]*template.Template {
	m := make(map[Kind]*template.Template, len(templates))
	for k, src := range templates {
		m[k] = template.Must(template.New(fmt.Sprint(int(k))).Parse(src))
	}
	return m
}()

// Operand is one value passed to an assertion.
type Operand struct {
	Value any
	Call  string // Description of the function call that produced Value (ex: "shapes.Area(2, 3)"); empty if Value is not a call result.
}

// Assertion describes a failed assertion.
type Assertion struct {
	Kind     Kind
	Operands []Operand // In the order the test passed them.
	Places   int       // AlmostEqual, NotAlmostEqual
	Delta    float64   // InDelta, NotInDelta
	Location string    // Where the assertion is; see Location.
}

type fields struct {
	Expected   string
	Actual     string
	Places     int
	Delta      string
	ExpectedID string
	ActualID   string
	ActualType string
}

// Message renders the enriched failure message for a.
func Message(a Assertion) string {
	kind, actual, expected := roles(a)

	var buf bytes.Buffer
	if a.Location != "" {
		buf.WriteString(a.Location)
		buf.WriteByte('\n')
	}
	switch {
	case len(a.Operands) >= 2 && a.Operands[0].Call != "" && a.Operands[1].Call != "":
		fmt.Fprintf(&buf, "The function calls were: %s and %s\n", a.Operands[0].Call, a.Operands[1].Call)
	case actual != nil && actual.Call != "":
		fmt.Fprintf(&buf, "The function call was: %s\n", actual.Call)
	}

	var f fields
	f.Places = a.Places
	f.Delta = formatFloat(a.Delta)
	if actual != nil {
		f.Actual = Format(actual.Value)
		f.ActualType = typeName(actual.Value)
		f.ActualID = address(actual.Value)
	}
	if expected != nil {
		f.Expected = Format(expected.Value)
		f.ExpectedID = address(expected.Value)
	}

	switch kind {
	case AlmostEqual, NotAlmostEqual:
		if actual != nil && expected != nil {
			f.Actual = Format(roundValue(actual.Value, a.Places))
			f.Expected = Format(roundValue(expected.Value, a.Places))
		}
	case IsType, NotIsType:
		if expected != nil {
			f.Expected = typeName(expected.Value)
		}
	}

	if err := parsed[kind].Execute(&buf, f); err != nil {
		// Templates are static; this only happens if one is edited incorrectly.
		panic(fmt.Errorf("enrich: template for kind %d: %w", kind, err))
	}

	if kind == Equal && actual != nil && expected != nil {
		if d := structuralDiff(expected.Value, actual.Value); d != "" {
			buf.WriteString("\nDifference (- expected, + actual):\n")
			buf.WriteString(Indent(d, 4))
		}
	}
	return buf.String()
}

// roles decides which operand is the actual value and which the expected one, and re-describes ordering kinds from the actual value's side.
//
// The operand marked as a call is the actual value. For ordering kinds the first operand is the subject (Greater(a, b) checks a > b), so when the call is the second
// operand the kind is mirrored: Greater(5, f()) reads as "f() is less than 5". When neither or both operands are calls, the positional convention applies: expected
// first for equality-like kinds and the first operand as the subject for everything else.
func roles(a Assertion) (Kind, *Operand, *Operand) {
	ops := a.Operands
	switch len(ops) {
	case 0:
		return a.Kind, nil, nil
	case 1:
		return a.Kind, &ops[0], nil
	}

	callIdx := -1
	switch first, second := ops[0].Call != "", ops[1].Call != ""; {
	case first && !second:
		callIdx = 0
	case second && !first:
		callIdx = 1
	}

	switch a.Kind {
	case Equal, NotEqual, AlmostEqual, NotAlmostEqual, InDelta, NotInDelta, Same, NotSame:
		if callIdx == 0 {
			return a.Kind, &ops[0], &ops[1]
		}
		return a.Kind, &ops[1], &ops[0]
	case Greater, GreaterOrEqual, Less, LessOrEqual:
		if callIdx == 1 {
			return mirror(a.Kind), &ops[1], &ops[0]
		}
		return a.Kind, &ops[0], &ops[1]
	case IsType, NotIsType:
		return a.Kind, &ops[1], &ops[0]
	default: // In, NotIn, Contains, NotContains and single-operand kinds
		return a.Kind, &ops[0], &ops[1]
	}
}

func mirror(k Kind) Kind {
	switch k {
	case Greater:
		return Less
	case Less:
		return Greater
	case GreaterOrEqual:
		return LessOrEqual
	case LessOrEqual:
		return GreaterOrEqual
	}
	return k
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

func address(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%#x", rv.Pointer())
	}
	return "(not a pointer)"
}
