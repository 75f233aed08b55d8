package vm

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// truthy is the condition test of @if and @while.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return true
}

// display is the text form of an emitted value; nil renders empty.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// number converts numeric values for loose comparison.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// equal compares match patterns: numbers by value, everything else deeply.
func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

// iterate calls yield with (key, value) pairs of v: index and element for
// slices, arrays and strings (elements as one-rune strings), sorted keys
// for maps, and 0..n-1 for integers. Iteration stops when yield returns
// false.
func iterate(v any, yield func(key, val any) bool) error {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		i := 0
		for _, r := range s {
			if !yield(i, string(r)) {
				return nil
			}
			i++
		}
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !yield(i, rv.Index(i).Interface()) {
				return nil
			}
		}
	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			x, y := a.Interface(), b.Interface()
			if nx, ok := number(x); ok {
				if ny, ok := number(y); ok {
					return cmp.Compare(nx, ny)
				}
			}
			return cmp.Compare(fmt.Sprint(x), fmt.Sprint(y))
		})
		for _, k := range keys {
			if !yield(k.Interface(), rv.MapIndex(k).Interface()) {
				return nil
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		for i := int64(0); i < rv.Int(); i++ {
			if !yield(int(i), int(i)) {
				return nil
			}
		}
	case reflect.Float32, reflect.Float64:
		n := rv.Float()
		if n != float64(int64(n)) {
			return fmt.Errorf("cannot iterate over fractional count %v", n)
		}
		for i := 0; i < int(n); i++ {
			if !yield(i, i) {
				return nil
			}
		}
	default:
		return fmt.Errorf("cannot iterate over %T", v)
	}
	return nil
}
