package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  int
		expectErr bool
	}{
		{name: "bare number is milliliters", input: "250", expected: 250},
		{name: "ml suffix", input: "330ml", expected: 330},
		{name: "cyrillic ml suffix", input: "200мл", expected: 200},
		{name: "liters", input: "0.5l", expected: 500},
		{name: "cyrillic liters", input: "1л", expected: 1000},
		{name: "comma decimal separator", input: "0,25l", expected: 250},
		{name: "ounces", input: "8oz", expected: 237},
		{name: "whitespace and case", input: " 250 ML ", expected: 250},
		{name: "space before unit", input: "250 ml", expected: 250},
		{name: "negative correction", input: "-150", expected: -150},
		{name: "zero rejected", input: "0", expectErr: true},
		{name: "rounds to zero rejected", input: "0.0001l", expectErr: true},
		{name: "too large", input: "6l", expectErr: true},
		{name: "too large negative", input: "-5001", expectErr: true},
		{name: "empty", input: "", expectErr: true},
		{name: "garbage", input: "a glass", expectErr: true},
		{name: "unit only", input: "ml", expectErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
