package connector

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type celsius float64

func TestValidateState(t *testing.T) {
	valid := []struct {
		name  string
		value any
	}{
		{"bool", true},
		{"string", "heating"},
		{"int", 42},
		{"int8", int8(-3)},
		{"uint64", uint64(7)},
		{"float32", float32(1.5)},
		{"float64", 21.5},
		{"empty map", map[string]any{}},
		{"empty list", []any{}},
		{"float slice", []float64{1, 2, 3}},
		{"string slice", []string{"a", "b"}},
		{"float32 slice", []float32{0.5}},
		{"int32 slice", []int32{-1, 1}},
		{"uint16 slice", []uint16{8}},
		{"nested", map[string]any{
			"temperature": 21.5,
			"halted":      false,
			"sensors": []any{
				map[string]any{"id": 1, "values": []any{1.0, 2, "x"}},
				[]int{1, 2},
			},
		}},
	}
	for _, tt := range valid {
		t.Run("valid "+tt.name, func(t *testing.T) {
			assert.NoError(t, ValidateState(tt.value))
		})
	}

	var n *int
	invalid := []struct {
		name     string
		value    any
		path     string
		typeName string
	}{
		{"complex at root", complex(1, 2), "", "complex128"},
		{"nil", nil, "", "<nil>"},
		{"named float", map[string]any{"t": celsius(20)}, "/t", "connector.celsius"},
		{"pointer", map[string]any{"p": n}, "/p", "*int"},
		{"struct", []any{struct{}{}}, "/0", "struct {}"},
		{"time", map[string]any{"at": time.Time{}}, "/at", "time.Time"},
		{"json number", map[string]any{"n": json.Number("1")}, "/n", "json.Number"},
		{"typed map", map[string]any{"m": map[string]int{"a": 1}}, "/m", "map[string]int"},
		{"byte slice", map[string]any{"raw": []byte("ab")}, "/raw", "[]uint8"},
		{"named slice", map[string]any{"v": []celsius{1}}, "/v", "[]connector.celsius"},
		{"pointer slice", map[string]any{"v": []*int{nil}}, "/v", "[]*int"},
		{"int keyed map", map[int]any{1: 1}, "", "map[int]interface {}"},
		{"deeply nested complex", map[string]any{
			"a": []any{map[string]any{"b": complex64(1)}},
		}, "/a/0/b", "complex64"},
		{"escaped key", map[string]any{"x/y": complex(0, 1)}, "/x~1y", "complex128"},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.name, func(t *testing.T) {
			err := ValidateState(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidState)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.path, verr.Path)
			assert.Equal(t, tt.typeName, verr.Type)
			assert.Contains(t, err.Error(), tt.typeName)
		})
	}

	t.Run("message names the value", func(t *testing.T) {
		err := ValidateState(map[string]any{"c": complex(1, 2)})
		require.Error(t, err)
		assert.Equal(t, "element '(1+2i)' at /c not supported: complex128", err.Error())
	})
}
