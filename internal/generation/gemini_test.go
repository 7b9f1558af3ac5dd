package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid",
			config: Config{APIKey: "key", Model: "gemini-1.5-flash-002", MaxOutputTokens: 4024, Temperature: 0.7, TopP: 0.9},
		},
		{
			name:    "missing api key",
			config:  Config{Model: "gemini-1.5-flash-002"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  Config{APIKey: "key"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewGeminiGenerator_InvalidConfig(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
