package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput - ошибка входных данных, обнаруженная до сетевого вызова.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnknownOperation - операция не зарегистрирована.
var ErrUnknownOperation = errors.New("unknown operation")

// InputError описывает проблему с конкретным полем.
type InputError struct {
	Field string
	Msg   string
	Err   error
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func (e *InputError) Unwrap() error { return e.Err }

func inputErr(field, format string, args ...interface{}) error {
	return &InputError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Params - слабо типизированные параметры вызова сервиса.
type Params map[string]any

func (p Params) lookup(key string) (any, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// String возвращает строковое поле или значение по умолчанию.
func (p Params) String(key, def string) (string, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case int, int32, int64, float64:
		return fmt.Sprint(t), nil
	default:
		return "", inputErr(key, "expected string, got %T", v)
	}
}

func (p Params) RequiredString(key string) (string, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", inputErr(key, "is required")
	}
	return s, nil
}

// Int приводит поле к целому: числа, json.Number и десятичные строки.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, &InputError{Field: key, Msg: err.Error(), Err: err}
	}
	return n, nil
}

func (p Params) RequiredInt(key string) (int, error) {
	if _, ok := p.lookup(key); !ok {
		return 0, inputErr(key, "is required")
	}
	return p.Int(key, 0)
}

// Strings принимает список или строку через запятую.
func (p Params) Strings(key string) ([]string, error) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, nil
	}
	var out []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			s, isString := item.(string)
			if !isString {
				return nil, inputErr(key, "expected list of strings, got %T item", item)
			}
			out = append(out, strings.TrimSpace(s))
		}
	default:
		return nil, inputErr(key, "expected list of strings, got %T", v)
	}
	return out, nil
}

// Ints принимает "123, 456,789" или список чисел/строк.
func (p Params) Ints(key string) ([]int, error) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, inputErr(key, "is required")
	}
	var items []any
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			items = append(items, part)
		}
	case []any:
		items = t
	case []int:
		return append([]int(nil), t...), nil
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	default:
		n, err := toInt(v)
		if err != nil {
			return nil, &InputError{Field: key, Msg: err.Error(), Err: err}
		}
		return []int{n}, nil
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		n, err := toInt(item)
		if err != nil {
			return nil, &InputError{Field: fmt.Sprintf("%s[%d]", key, i), Msg: err.Error(), Err: err}
		}
		out = append(out, n)
	}
	return out, nil
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", t.String())
		}
		return floatToInt(f)
	case string:
		return parseInt(t)
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int(f), nil
}
