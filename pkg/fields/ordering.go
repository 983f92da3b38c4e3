package fields

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"github.com/ssargent/freyjadoc/pkg/model"
)

// KeyFunc returns the sort key of a list element.
type KeyFunc func(item any) any

// keyFunc is the internal form of an ordering; it may fail.
type keyFunc func(item any) (any, error)

// Identity orders elements by their own value.
func Identity(item any) any { return item }

// compileOrdering turns an ordering argument into a key function. Accepted
// forms are nil, a KeyFunc, a func(any) any, a func(any) (any, error) and
// an expr-lang expression string evaluated with the element bound to
// "item". Anything else is a configuration error.
func compileOrdering(ordering any) (keyFunc, error) {
	switch o := ordering.(type) {
	case nil:
		return nil, nil
	case KeyFunc:
		if o == nil {
			return nil, nil
		}
		return func(item any) (any, error) { return o(item), nil }, nil
	case func(any) any:
		if o == nil {
			return nil, nil
		}
		return func(item any) (any, error) { return o(item), nil }, nil
	case func(any) (any, error):
		if o == nil {
			return nil, nil
		}
		return o, nil
	case string:
		return compileExprOrdering(o)
	}
	return nil, model.Configuration("ordering has to be a key function, an expression or nil, not %T", ordering)
}

func compileExprOrdering(expression string) (keyFunc, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, model.Configuration("ordering expression must not be empty")
	}
	program, err := exprlang.Compile(expression)
	if err != nil {
		return nil, &model.Error{
			Kind:    model.KindConfiguration,
			Message: fmt.Sprintf("invalid ordering expression %q", expression),
			Err:     err,
		}
	}
	return func(item any) (any, error) {
		return runOrdering(program, expression, item)
	}, nil
}

func runOrdering(program *exprvm.Program, expression string, item any) (any, error) {
	env := map[string]any{"item": exprItem(item)}
	out, err := exprlang.Run(program, env)
	if err != nil {
		// the element does not fit the key
		return nil, &model.Error{
			Kind:    model.KindValidation,
			Message: fmt.Sprintf("ordering expression %q cannot be evaluated for element", expression),
			Err:     err,
		}
	}
	return out, nil
}

// exprItem exposes records to expressions as attribute maps.
func exprItem(item any) any {
	if inst, ok := item.(*model.Instance); ok && inst != nil {
		return inst.Attributes()
	}
	return item
}

// sortInPlace stably sorts the slice held in list by key. The slice's
// backing array is reordered, so the caller observes the new order.
func sortInPlace(list any, key keyFunc) error {
	rv := reflect.ValueOf(list)
	n := rv.Len()
	if n < 2 {
		return nil
	}

	items := make([]any, n)
	keys := make([]any, n)
	for i := 0; i < n; i++ {
		items[i] = rv.Index(i).Interface()
		k, err := key(items[i])
		if err != nil {
			return err
		}
		keys[i] = k
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return compareKeys(keys[idx[a]], keys[idx[b]]) < 0
	})

	for i, j := range idx {
		v := reflect.ValueOf(items[j])
		if !v.IsValid() {
			v = reflect.Zero(rv.Type().Elem())
		}
		rv.Index(i).Set(v)
	}
	return nil
}

// compareKeys orders nil first, then numbers, strings, booleans and times
// by value. Keys of unrelated types are ordered by type name.
func compareKeys(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return compareOrdered(fa, fb)
		}
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case fmt.Stringer:
		if y, ok := b.(fmt.Stringer); ok {
			return strings.Compare(x.String(), y.String())
		}
	}

	ta, tb := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	if ta != tb {
		return strings.Compare(ta, tb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func numeric(v any) (float64, bool) {
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

func compareOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
