package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatVolume(t *testing.T) {
	assert.Equal(t, "250 мл", formatVolume("ml", 250))
	assert.Equal(t, "250 мл", formatVolume("", 250))

	// 237 ml is one US cup, about eight ounces.
	assert.Equal(t, "8.0 oz", formatVolume("oz", 237))
}

func TestProgressBarClamps(t *testing.T) {
	assert.Equal(t, "⬜⬜⬜⬜⬜⬜⬜⬜⬜⬜", progressBar(-5))
	assert.Equal(t, "🟦🟦🟦🟦🟦⬜⬜⬜⬜⬜", progressBar(50))
	assert.Equal(t, "🟦🟦🟦🟦🟦🟦🟦🟦🟦🟦", progressBar(140))
}
