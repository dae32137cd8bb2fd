package summary

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// RatePrecision is the number of decimal places a parsed rate is rounded to
const RatePrecision = 1

// maxMagnitude is the largest decimal order of magnitude a float64 can hold
const maxMagnitude = 308

var (
	// ErrNotARate is returned for tokens that carry no numeric rate.
	// These are routine on scraped pages and are skipped silently
	ErrNotARate = errors.New("not a rate")

	// ErrEmptyToken is returned for blank tokens (it matches ErrNotARate)
	ErrEmptyToken = fmt.Errorf("%w: empty token", ErrNotARate)

	errRateOutOfRange = errors.New("rate out of range")
)

// ParseRate converts a raw scraped token into a rate, rounded half away
// from zero to RatePrecision decimal places.
// Both "450,5" and "450.5" parse to 450.5
func ParseRate(token string) (float64, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, ErrEmptyToken
	}

	// Pages may use the comma as the decimal separator
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotARate, s)
	}

	// Bound the exponent before rounding, the rescale cost grows with it.
	// magnitude is the order of the leading digit, plus one
	magnitude := int64(d.Exponent()) + int64(len(new(big.Int).Abs(d.Coefficient()).String()))

	switch {
	case d.IsZero():
		return 0, nil
	case magnitude > maxMagnitude+1:
		return 0, fmt.Errorf("%w: %q", errRateOutOfRange, s)
	case magnitude < -RatePrecision:
		// |d| < 10^-(RatePrecision+1), rounds to zero
		return 0, nil
	}

	f, _ := d.Round(RatePrecision).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q", errRateOutOfRange, s)
	}

	return f, nil
}
