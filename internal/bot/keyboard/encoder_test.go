package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glotok-bot/glotok/internal/bot/keyboard"
)

func TestEncodeCallback(t *testing.T) {
	got, err := keyboard.EncodeCallback("drink", "250")
	require.NoError(t, err)
	assert.Equal(t, "drink:250", got)

	got, err = keyboard.EncodeCallback("unmute", "")
	require.NoError(t, err)
	assert.Equal(t, "unmute", got)
}

func TestEncodeCallbackRejectsOversizedPayload(t *testing.T) {
	_, err := keyboard.EncodeCallback(strings.Repeat("x", keyboard.CallbackDataLimitBytes+1), "")
	require.Error(t, err)

	_, err = keyboard.EncodeCallback("drink", strings.Repeat("9", keyboard.CallbackDataLimitBytes))
	require.Error(t, err)
}

func TestDecodeCallback(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantUnique string
		wantData   string
		wantErr    bool
	}{
		{name: "unique and data", input: "drink:300", wantUnique: "drink", wantData: "300"},
		{name: "only unique", input: "unmute", wantUnique: "unmute"},
		{name: "data keeps extra separators", input: "mute:2:h", wantUnique: "mute", wantData: "2:h"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, data, err := keyboard.DecodeCallback(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantUnique, unique)
			assert.Equal(t, tt.wantData, data)
		})
	}
}
