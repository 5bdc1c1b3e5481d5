package entra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateState(t *testing.T) {
	first, err := GenerateState()
	require.NoError(t, err)
	second, err := GenerateState()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}

func TestValidateState(t *testing.T) {
	tests := []struct {
		name          string
		sessionState  string
		returnedState string
		want          bool
	}{
		{"Match", "s1", "s1", true},
		{"Mismatch", "s1", "s2", false},
		{"MissingSessionState", "", "s1", false},
		{"MissingReturnedState", "s1", "", false},
		{"BothMissing", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateState(tt.sessionState, tt.returnedState))
		})
	}
}
