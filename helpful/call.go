package helpful

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/sanity-io/litter"
)

// Invocation is a call of code under test that an assertion makes on the test's behalf. Create one with Fn.
type Invocation struct {
	fn   reflect.Value
	args []reflect.Value
	raw  []any
	name string
}

// Fn describes the call fn(args...). The assertion it is passed to makes the call under a timeout and uses the first result as the value to check.
//
// Untyped numeric constants are converted to the parameter type, so Fn(area, 2, 3) works for area(w, h float64). Fn panics if fn is not a function or the
// arguments do not fit its parameters.
func Fn(fn any, args ...any) Invocation {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic(fmt.Sprintf("helpful.Fn: %T is not a function", fn))
	}
	typ := v.Type()
	n := typ.NumIn()
	if (!typ.IsVariadic() && len(args) != n) || (typ.IsVariadic() && len(args) < n-1) {
		panic(fmt.Sprintf("helpful.Fn: %s takes %d arguments, got %d", funcName(v), n, len(args)))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var want reflect.Type
		if typ.IsVariadic() && i >= n-1 {
			want = typ.In(n - 1).Elem()
		} else {
			want = typ.In(i)
		}
		av, err := argValue(a, want)
		if err != nil {
			panic(fmt.Sprintf("helpful.Fn: argument %d of %s: %v", i+1, funcName(v), err))
		}
		in[i] = av
	}
	return Invocation{fn: v, args: in, raw: args, name: funcName(v)}
}

func argValue(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %v", want)
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	if numeric(av.Kind()) && numeric(want.Kind()) {
		if out, ok := convertNumber(av, want); ok {
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("%v %s is not assignable to %v without changing its value", av.Type(), argString(a), want)
	}
	return reflect.Value{}, fmt.Errorf("%v is not assignable to %v", av.Type(), want)
}

// convertNumber converts av to want, reporting false when the value would be truncated or overflow.
func convertNumber(av reflect.Value, want reflect.Type) (reflect.Value, bool) {
	out := reflect.New(want).Elem()
	switch {
	case av.CanFloat():
		f := av.Float()
		switch {
		case out.CanFloat():
			if out.OverflowFloat(f) {
				return reflect.Value{}, false
			}
			out.SetFloat(f)
		case f != math.Trunc(f) || math.IsInf(f, 0):
			return reflect.Value{}, false
		case out.CanInt():
			if f < math.MinInt64 || f >= -math.MinInt64 || out.OverflowInt(int64(f)) {
				return reflect.Value{}, false
			}
			out.SetInt(int64(f))
		default:
			if f < 0 || f >= 1<<64 || out.OverflowUint(uint64(f)) {
				return reflect.Value{}, false
			}
			out.SetUint(uint64(f))
		}
	case av.CanInt():
		i := av.Int()
		switch {
		case out.CanFloat():
			out.SetFloat(float64(i))
		case out.CanInt():
			if out.OverflowInt(i) {
				return reflect.Value{}, false
			}
			out.SetInt(i)
		default:
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, false
			}
			out.SetUint(uint64(i))
		}
	default:
		u := av.Uint()
		switch {
		case out.CanFloat():
			out.SetFloat(float64(u))
		case out.CanInt():
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return reflect.Value{}, false
			}
			out.SetInt(int64(u))
		default:
			if out.OverflowUint(u) {
				return reflect.Value{}, false
			}
			out.SetUint(u)
		}
	}
	return out, true
}

func numeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Float64) || k == reflect.Uintptr
}

// funcName returns fn's name qualified by its package name only: "hw1.Add".
func funcName(fn reflect.Value) string {
	rf := runtime.FuncForPC(fn.Pointer())
	if rf == nil {
		return "func"
	}
	name := rf.Name()
	name = name[strings.LastIndexByte(name, '/')+1:]
	return strings.TrimSuffix(name, "-fm")
}

// String describes the call as a student would write it: hw1.Add(2, 3).
func (inv Invocation) String() string {
	args := make([]string, len(inv.raw))
	for i, a := range inv.raw {
		args[i] = argString(a)
	}
	return inv.name + "(" + strings.Join(args, ", ") + ")"
}

var argDump = litter.Options{Compact: true, StripPackageNames: true}

func argString(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	}
	return argDump.Sdump(v)
}

// call makes the call and returns its results.
func (inv Invocation) call() []any {
	out := inv.fn.Call(inv.args)
	res := make([]any, len(out))
	for i, v := range out {
		res[i] = v.Interface()
	}
	return res
}

// Labeled is a value that code under test already produced, with a description of how. Create one with Label.
type Labeled struct {
	Desc  string
	Value any
}

// Label marks value as the result of the code described by desc, for example Label("s.Pop()", s.Pop()).
func Label(desc string, value any) Labeled {
	return Labeled{Desc: desc, Value: value}
}
