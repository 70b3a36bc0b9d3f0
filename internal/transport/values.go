package transport

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

func badArgument(opt Option, v any) *Error {
	return newError(CodeBadFunctionArgument, "option %s: unsupported value %v (%T)", opt, v, v)
}

func optString(o Options, opt Option) (*string, error) {
	v, ok := o[opt]
	if !ok || v == nil {
		return nil, nil
	}
	switch s := v.(type) {
	case string:
		return &s, nil
	case fmt.Stringer:
		str := s.String()
		return &str, nil
	default:
		return nil, badArgument(opt, v)
	}
}

func optBool(o Options, opt Option) (*bool, error) {
	v, ok := o[opt]
	if !ok || v == nil {
		return nil, nil
	}
	switch b := v.(type) {
	case bool:
		return &b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil, badArgument(opt, v)
		}
		return &parsed, nil
	default:
		n, ok := toInt(v)
		if !ok {
			return nil, badArgument(opt, v)
		}
		res := n != 0
		return &res, nil
	}
}

// maxSeconds is the largest timeout a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// optSeconds reads a timeout given in plain seconds. A time.Duration is
// accepted as-is. Zero or absent means no limit.
func optSeconds(o Options, opt Option) (time.Duration, error) {
	v, ok := o[opt]
	if !ok || v == nil {
		return 0, nil
	}
	if d, ok := v.(time.Duration); ok {
		return d, nil
	}
	f, ok := toFloat(v)
	if !ok || f < 0 || math.IsNaN(f) || f > maxSeconds {
		return 0, badArgument(opt, v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func optStrings(o Options, opt Option) ([]string, error) {
	v, ok := o[opt]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, badArgument(opt, v)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, badArgument(opt, v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case float32:
		return toInt(float64(n))
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		i, ok := toInt(v)
		return float64(i), ok
	}
}
