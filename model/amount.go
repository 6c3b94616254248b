/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits every stored amount carries.
const AmountScale = 2

// MaxBalance is the largest balance an account column can hold.
var MaxBalance = decimal.RequireFromString("99999999.99")

const (
	// maxIntegerDigits is the number of integer digits of MaxBalance.
	maxIntegerDigits = 8
	// minExponent bounds how many trailing fractional zeros an amount may be
	// written with. Anything finer is rejected before it is rescaled.
	minExponent = -18
)

func invalidAmount(message string) error {
	return apierror.NewAPIError(apierror.ErrInvalidAmount, message, nil)
}

// ValidateAmount checks that amount is strictly positive, has at most two
// fractional digits and fits in a balance. The exponent is bounded before any
// arithmetic so oversized exponents cost nothing.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return invalidAmount("amount must be positive")
	}
	exp := int64(amount.Exponent())
	if exp < minExponent {
		return invalidAmount(fmt.Sprintf("amount has more than %d decimal places", AmountScale))
	}
	if int64(amount.NumDigits())+exp > maxIntegerDigits {
		return invalidAmount(fmt.Sprintf("amount exceeds the maximum of %s", MaxBalance.StringFixed(AmountScale)))
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return invalidAmount(fmt.Sprintf("amount has more than %d decimal places", AmountScale))
	}
	if amount.GreaterThan(MaxBalance) {
		return invalidAmount(fmt.Sprintf("amount exceeds the maximum of %s", MaxBalance.StringFixed(AmountScale)))
	}
	return nil
}

// ParseAmount parses a decimal string such as "10.50" into a validated amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalidAmount("amount is not a decimal number")
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
