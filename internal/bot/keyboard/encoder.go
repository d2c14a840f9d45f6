package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// Telegram rejects callback_data longer than 64 bytes, so every encoded
// payload is checked against that limit before a keyboard is built.
const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// EncodeCallback joins an action name and its payload into callback data,
// e.g. ("drink", "250") -> "drink:250". A payload-less action encodes as
// the bare action name.
func EncodeCallback(unique, data string) (string, error) {
	encoded := unique
	if data != "" {
		encoded = unique + CallbackDataSeparator + data
	}

	if len(encoded) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(encoded))
	}

	return encoded, nil
}

// DecodeCallback splits callback data back into action and payload. Data
// without a separator is treated as a payload-less action.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	idx := strings.Index(callbackData, CallbackDataSeparator)
	if idx == -1 {
		return callbackData, "", nil
	}

	return callbackData[:idx], callbackData[idx+len(CallbackDataSeparator):], nil
}
