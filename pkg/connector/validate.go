package connector

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateState checks that v is made only of values the platform can
// serialize: bool, string, the predeclared integer and float types, []any and
// map[string]any of such values, and slices whose element is one of those
// scalar types.
//
// []byte ([]uint8) is the one scalar slice rejected: it encodes as a base64
// string, not as an array of numbers.
//
// Types are matched exactly. A named type is rejected even when its underlying
// type is allowed, so `type Celsius float64` fails just like complex128, nil,
// pointers and structs do.
func ValidateState(v any) error {
	return validateValue(v, "")
}

func validateValue(v any, path string) error {
	switch val := v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case []bool, []string,
		[]int, []int8, []int16, []int32, []int64,
		[]uint, []uint16, []uint32, []uint64,
		[]float32, []float64:
		return nil
	case map[string]any:
		// keys are strings by construction
		for k, item := range val {
			if err := validateValue(item, path+"/"+escapePointer(k)); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, item := range val {
			if err := validateValue(item, path+"/"+strconv.Itoa(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:  path,
			Value: v,
			Type:  fmt.Sprintf("%T", v),
		}
	}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(s string) string {
	return pointerEscaper.Replace(s)
}
