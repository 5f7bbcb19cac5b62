package odds

import "fmt"

// IsValidAmerican reports whether price is a legal American odds value.
// Values strictly between -100 and +100 are malformed.
func IsValidAmerican(price int) bool {
	return price >= 100 || price <= -100
}

// AmericanToDecimal converts American odds to decimal odds.
// American +150 → Decimal 2.50
// American -150 → Decimal 1.6667
func AmericanToDecimal(price int) (float64, error) {
	switch {
	case price >= 100:
		return 1 + float64(price)/100, nil
	case price <= -100:
		return 1 + 100/float64(-price), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidPrice, price)
}

// ImpliedProbability is 1 / decimal odds.
func ImpliedProbability(price int) (float64, error) {
	dec, err := AmericanToDecimal(price)
	if err != nil {
		return 0, err
	}
	return 1 / dec, nil
}

// FormatAmerican renders a price with an explicit sign for underdogs.
func FormatAmerican(price int) string {
	if price > 0 {
		return fmt.Sprintf("+%d", price)
	}
	return fmt.Sprintf("%d", price)
}
