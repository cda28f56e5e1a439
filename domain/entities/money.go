package entities

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits persisted for every amount
const MoneyPlaces = 2

// ValidateAmount rejects non-positive amounts and amounts finer than one cent
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewInvalidInputError("%s must be positive", field)
	}
	if !amount.Equal(amount.Round(MoneyPlaces)) {
		return NewInvalidInputError("%s cannot have more than %d decimal places", field, MoneyPlaces)
	}
	return nil
}

// RoundMoney rounds half away from zero to the persisted precision
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}
