package siminterface

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCompiles(t *testing.T) {
	s, err := interfaceSchema()
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		descriptor map[string]any
		wantValid  bool
		wantWarn   string
	}{
		{
			name:       "minimal",
			descriptor: map[string]any{"name": "thermostat", "timeout": 60},
			wantValid:  true,
		},
		{
			name:       "timeout decoded from json as float",
			descriptor: map[string]any{"name": "thermostat", "timeout": float64(60)},
			wantValid:  true,
		},
		{
			name: "with typed description",
			descriptor: map[string]any{
				"name":    "thermostat",
				"timeout": 60,
				"description": map[string]any{
					"state": map[string]any{
						"category": "Struct",
						"fields": []any{
							map[string]any{"name": "temperature", "type": map[string]any{"category": "Number"}},
							map[string]any{"name": "mode", "type": map[string]any{"category": "Enum", "values": []any{"heat", "cool"}}},
							map[string]any{"name": "history", "type": map[string]any{
								"category": "Array", "length": 3, "type": map[string]any{"category": "Number"},
							}},
						},
					},
					"action": map[string]any{
						"category": "Struct",
						"fields": []any{
							map[string]any{"name": "heater", "type": map[string]any{"category": "Number", "start": 0, "stop": 1}},
						},
					},
				},
				"capabilities": map[string]any{"hasReset": true},
			},
			wantValid: true,
		},
		{
			name:       "missing timeout",
			descriptor: map[string]any{"name": "thermostat"},
			wantWarn:   "timeout",
		},
		{
			name:       "missing name",
			descriptor: map[string]any{"timeout": 60},
			wantWarn:   "name",
		},
		{
			name:       "timeout not an integer",
			descriptor: map[string]any{"name": "thermostat", "timeout": 1.5},
			wantWarn:   "/timeout",
		},
		{
			name:       "timeout is a string",
			descriptor: map[string]any{"name": "thermostat", "timeout": "60"},
			wantWarn:   "/timeout",
		},
		{
			name: "bad type category in referenced schema",
			descriptor: map[string]any{
				"name":    "thermostat",
				"timeout": 60,
				"description": map[string]any{
					"state": map[string]any{
						"category": "Struct",
						"fields": []any{
							map[string]any{"name": "x", "type": map[string]any{"category": "Quaternion"}},
						},
					},
				},
			},
			wantWarn: "/description/state/fields/0/type",
		},
		{
			name:       "not representable as json",
			descriptor: map[string]any{"name": "thermostat", "timeout": math.Inf(1)},
			wantWarn:   "not representable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Check(tt.descriptor)
			assert.Equal(t, tt.wantValid, report.Valid(), report.String())
			if tt.wantWarn != "" {
				require.NotEmpty(t, report.Warnings)
				assert.True(t, strings.Contains(strings.Join(report.Warnings, "\n"), tt.wantWarn), report.String())
			}
		})
	}
}

func TestCheckJSON(t *testing.T) {
	descriptor, report := CheckJSON([]byte(`{"name": "thermostat", "timeout": 30}`))
	assert.True(t, report.Valid())
	assert.Equal(t, "thermostat", descriptor["name"])
	assert.Equal(t, "ok", report.String())

	descriptor, report = CheckJSON([]byte(`[1, 2]`))
	assert.Nil(t, descriptor)
	assert.False(t, report.Valid())
}
