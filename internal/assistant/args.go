package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// args are call arguments that passed validateArgs, so accessors can
// assume the declared types.
type args map[string]any

// validateArgs checks names, presence, types and enums against spec.
// Null values count as absent.
func validateArgs(spec FunctionSpec, raw map[string]any) (args, error) {
	op := "execute " + spec.Name

	var unknown []string
	for name := range raw {
		if _, ok := spec.param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperr.InvalidArguments(op, "unknown parameter %q", unknown[0])
	}

	out := make(args, len(raw))
	for _, p := range spec.Params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if p.Required {
				return nil, apperr.InvalidArguments(op, "missing required parameter %q", p.Name)
			}
			continue
		}
		norm, err := checkValue(p, v)
		if err != nil {
			return nil, apperr.InvalidArguments(op, "parameter %q: %v", p.Name, err)
		}
		out[p.Name] = norm
	}
	return out, nil
}

// maxInteger bounds integer arguments. Ids, years, day counts and limits all
// fit, and the value converts to int and uint without wrapping.
const maxInteger = math.MaxInt32

func checkValue(p Param, v any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, strings.ToLower(s)) {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(p.Enum, ", "))
		}
		if len(p.Enum) > 0 {
			s = strings.ToLower(s)
		}
		return s, nil
	case TypeInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected whole number, got %v", v)
		}
		if math.Abs(f) > maxInteger {
			return nil, fmt.Errorf("%v is out of range", v)
		}
		if p.Positive && f <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		return int64(f), nil
	case TypeNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		if p.Positive && f <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		return f, nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil
	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected date string, got %T", v)
		}
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, err
		}
		return d, nil
	case TypeStringArray:
		switch list := v.(type) {
		case []string:
			return list, nil
		case []any:
			out := make([]string, 0, len(list))
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected list of strings, got %T", v)
		}
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", p.Type)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (a args) has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a args) id(name string) uint {
	n, _ := a[name].(int64)
	return uint(n)
}

func (a args) str(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a args) strPtr(name string) *string {
	if !a.has(name) {
		return nil
	}
	s := a.str(name)
	return &s
}

func (a args) intPtr(name string) *int {
	n, ok := a[name].(int64)
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

func (a args) floatPtr(name string) *float64 {
	f, ok := a[name].(float64)
	if !ok {
		return nil
	}
	return &f
}

func (a args) datePtr(name string) *model.Date {
	d, ok := a[name].(model.Date)
	if !ok {
		return nil
	}
	return &d
}

func (a args) strings(name string) []string {
	list, _ := a[name].([]string)
	return list
}
