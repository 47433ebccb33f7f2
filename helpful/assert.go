package helpful

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/helpfultests/helpfultests/internal/enrich"
	"github.com/helpfultests/helpfultests/internal/sidecar"
)

// recorder collects what a testify assertion reports.
type recorder struct {
	msgs []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func (r *recorder) String() string {
	return strings.TrimSpace(strings.Join(r.msgs, "\n"))
}

type assertFunc func(t assert.TestingT, v []any) bool

// check resolves the operands in args (running any Fn calls), then runs fn on their values. When fn fails, the test fails with the enriched message for a, or
// with testify's message if the test gave its own msgAndArgs.
func (h *T) check(a enrich.Assertion, args []any, msgAndArgs []any, fn assertFunc) {
	h.tb.Helper()
	vals := make([]any, len(args))
	for i, arg := range args {
		op, f := h.operand(arg)
		if f != nil {
			h.failWith(header(op.Call), f)
			return
		}
		a.Operands = append(a.Operands, op)
		vals[i] = op.Value
	}

	var rec recorder
	if fn(&rec, vals) {
		return
	}
	a.Location = location()
	if len(msgAndArgs) > 0 {
		h.fail(sidecar.KindFailure, a.Location+"\n"+rec.String())
		return
	}
	h.fail(sidecar.KindFailure, enrich.Message(a))
}

// operand resolves v. For an Invocation this runs the code under test.
func (h *T) operand(v any) (enrich.Operand, *failure) {
	switch x := v.(type) {
	case Invocation:
		op := enrich.Operand{Call: x.String()}
		var out []any
		if f := h.run(func() { out = x.call() }); f != nil {
			return op, f
		}
		if len(out) > 0 {
			op.Value = out[0]
		}
		return op, nil
	case Labeled:
		return enrich.Operand{Value: x.Value, Call: x.Desc}, nil
	}
	return enrich.Operand{Value: v}, nil
}

// coerce converts two numbers of different types to float64 so that Equal(5, f()) passes when f returns an int64 or a float64 5.
func coerce(x, y any) (any, any) {
	if reflect.TypeOf(x) == reflect.TypeOf(y) {
		return x, y
	}
	fx, okx := enrich.ToFloat(x)
	fy, oky := enrich.ToFloat(y)
	if okx && oky {
		return fx, fy
	}
	return x, y
}

func assertion(kind enrich.Kind) enrich.Assertion {
	return enrich.Assertion{Kind: kind}
}

// Equal checks that actual equals expected. Numbers of different types are compared by value.
func (h *T) Equal(expected, actual any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.Equal), []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		e, a := coerce(v[0], v[1])
		return assert.Equal(t, e, a, msgAndArgs...)
	})
}

// NotEqual checks that actual does not equal expected.
func (h *T) NotEqual(expected, actual any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.NotEqual), []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		e, a := coerce(v[0], v[1])
		return assert.NotEqual(t, e, a, msgAndArgs...)
	})
}

// Greater checks that e1 > e2.
func (h *T) Greater(e1, e2 any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.Greater), []any{e1, e2}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		x, y := coerce(v[0], v[1])
		return assert.Greater(t, x, y, msgAndArgs...)
	})
}

// GreaterOrEqual checks that e1 >= e2.
func (h *T) GreaterOrEqual(e1, e2 any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.GreaterOrEqual), []any{e1, e2}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		x, y := coerce(v[0], v[1])
		return assert.GreaterOrEqual(t, x, y, msgAndArgs...)
	})
}

// Less checks that e1 < e2.
func (h *T) Less(e1, e2 any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.Less), []any{e1, e2}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		x, y := coerce(v[0], v[1])
		return assert.Less(t, x, y, msgAndArgs...)
	})
}

// LessOrEqual checks that e1 <= e2.
func (h *T) LessOrEqual(e1, e2 any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.LessOrEqual), []any{e1, e2}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		x, y := coerce(v[0], v[1])
		return assert.LessOrEqual(t, x, y, msgAndArgs...)
	})
}

// AlmostEqual checks that expected and actual are equal once their difference is rounded to places decimal places.
func (h *T) AlmostEqual(expected, actual any, places int, msgAndArgs ...any) {
	h.tb.Helper()
	a := assertion(enrich.AlmostEqual)
	a.Places = places
	h.check(a, []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		d, err := difference(v[0], v[1])
		if err != nil {
			return assert.Fail(t, err.Error(), msgAndArgs...)
		}
		if enrich.Round(d, places) == 0 {
			return true
		}
		return assert.Fail(t, fmt.Sprintf("%v != %v within %d places", v[0], v[1], places), msgAndArgs...)
	})
}

// NotAlmostEqual is the opposite of AlmostEqual.
func (h *T) NotAlmostEqual(expected, actual any, places int, msgAndArgs ...any) {
	h.tb.Helper()
	a := assertion(enrich.NotAlmostEqual)
	a.Places = places
	h.check(a, []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		d, err := difference(v[0], v[1])
		if err != nil {
			return assert.Fail(t, err.Error(), msgAndArgs...)
		}
		if enrich.Round(d, places) != 0 {
			return true
		}
		return assert.Fail(t, fmt.Sprintf("%v == %v within %d places", v[0], v[1], places), msgAndArgs...)
	})
}

func difference(x, y any) (float64, error) {
	fx, okx := enrich.ToFloat(x)
	fy, oky := enrich.ToFloat(y)
	if !okx || !oky {
		return 0, fmt.Errorf("%v and %v are not both numbers", x, y)
	}
	return fy - fx, nil
}

// InDelta checks that actual is within delta of expected.
func (h *T) InDelta(expected, actual any, delta float64, msgAndArgs ...any) {
	h.tb.Helper()
	a := assertion(enrich.InDelta)
	a.Delta = delta
	h.check(a, []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.InDelta(t, v[0], v[1], delta, msgAndArgs...)
	})
}

// NotInDelta checks that actual is farther than delta from expected.
func (h *T) NotInDelta(expected, actual any, delta float64, msgAndArgs ...any) {
	h.tb.Helper()
	a := assertion(enrich.NotInDelta)
	a.Delta = delta
	h.check(a, []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		if _, err := difference(v[0], v[1]); err != nil {
			return assert.Fail(t, err.Error(), msgAndArgs...)
		}
		if !assert.InDelta(&recorder{}, v[0], v[1], delta) {
			return true
		}
		return assert.Fail(t, fmt.Sprintf("%v and %v are within %v", v[0], v[1], delta), msgAndArgs...)
	})
}

// True checks that value is the bool true.
func (h *T) True(value any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.True), []any{value}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.Equal(t, true, v[0], msgAndArgs...)
	})
}

// False checks that value is the bool false.
func (h *T) False(value any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.False), []any{value}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.Equal(t, false, v[0], msgAndArgs...)
	})
}

// Nil checks that value is nil (including a nil pointer, slice, or map).
func (h *T) Nil(value any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.Nil), []any{value}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.Nil(t, v[0], msgAndArgs...)
	})
}

// NotNil checks that value is not nil.
func (h *T) NotNil(value any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.NotNil), []any{value}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.NotNil(t, v[0], msgAndArgs...)
	})
}

// Same checks that expected and actual are the same pointer.
func (h *T) Same(expected, actual any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.Same), []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.Same(t, v[0], v[1], msgAndArgs...)
	})
}

// NotSame checks that expected and actual are different pointers.
func (h *T) NotSame(expected, actual any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.NotSame), []any{expected, actual}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.NotSame(t, v[0], v[1], msgAndArgs...)
	})
}

// IsType checks that object has the same type as expectedType (a value of the wanted type, such as 0 or "").
func (h *T) IsType(expectedType, object any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.IsType), []any{expectedType, object}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.IsType(t, v[0], v[1], msgAndArgs...)
	})
}

// NotIsType checks that object does not have the type of expectedType.
func (h *T) NotIsType(expectedType, object any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.NotIsType), []any{expectedType, object}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		if reflect.TypeOf(v[0]) != reflect.TypeOf(v[1]) {
			return true
		}
		return assert.Fail(t, fmt.Sprintf("Object expected to be of type other than %T", v[0]), msgAndArgs...)
	})
}

// In checks that element is in container (a string, slice, array, or map's keys).
func (h *T) In(element, container any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.In), []any{element, container}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.Contains(t, v[1], v[0], msgAndArgs...)
	})
}

// NotIn checks that element is not in container.
func (h *T) NotIn(element, container any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.NotIn), []any{element, container}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.NotContains(t, v[1], v[0], msgAndArgs...)
	})
}

// Contains checks that container contains element.
func (h *T) Contains(container, element any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.Contains), []any{container, element}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.Contains(t, v[0], v[1], msgAndArgs...)
	})
}

// NotContains checks that container does not contain element.
func (h *T) NotContains(container, element any, msgAndArgs ...any) {
	h.tb.Helper()
	h.check(assertion(enrich.NotContains), []any{container, element}, msgAndArgs, func(t assert.TestingT, v []any) bool {
		return assert.NotContains(t, v[0], v[1], msgAndArgs...)
	})
}
