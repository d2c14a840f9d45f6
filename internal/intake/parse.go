// Package intake records drinks into the ledger and answers daily and
// weekly consumption queries.
package intake

import (
	"strconv"
	"strings"

	apperrors "github.com/glotok-bot/glotok/internal/errors"
)

const (
	// MLPerOz converts US fluid ounces to milliliters, both when parsing
	// "8oz" input and when rendering amounts for oz-unit profiles.
	MLPerOz = 29.5735

	// MaxSingleAmountML bounds one logged entry, positive or corrective.
	MaxSingleAmountML = 5000
)

// ParseAmount converts user input like "250", "250ml", "0.5l" or "8oz"
// into milliliters. A bare number means milliliters. Negative amounts are
// corrections; zero is rejected.
func ParseAmount(input string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, apperrors.NewConfigurationError("Укажите количество, например 250 или 0.5l")
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(s, "ml"):
		s = strings.TrimSuffix(s, "ml")
	case strings.HasSuffix(s, "мл"):
		s = strings.TrimSuffix(s, "мл")
	case strings.HasSuffix(s, "oz"):
		s = strings.TrimSuffix(s, "oz")
		factor = MLPerOz
	case strings.HasSuffix(s, "l"):
		s = strings.TrimSuffix(s, "l")
		factor = 1000
	case strings.HasSuffix(s, "л"):
		s = strings.TrimSuffix(s, "л")
		factor = 1000
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, apperrors.NewConfigurationError("Не удалось разобрать количество. Пример: 250, 250ml, 0.5l, 8oz")
	}

	amount := int(value*factor + sign(value)*0.5)
	if amount == 0 {
		return 0, apperrors.NewConfigurationError("Количество не может быть нулевым")
	}
	if amount > MaxSingleAmountML || amount < -MaxSingleAmountML {
		return 0, apperrors.NewConfigurationError("Слишком большое количество за один раз")
	}

	return amount, nil
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
