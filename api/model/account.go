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
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

var errDueDateFormat = errors.New("please format the due date as 'YYYY-MM-DD' or 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2024-04-22T15:28:03+00:00)")

func decimalRule(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if _, err := decimal.NewFromString(raw); err != nil {
		return errors.New("must be a decimal number")
	}
	return nil
}

func dueDateRule(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if _, err := parseDueDate(raw); err != nil {
		return errDueDateFormat
	}
	return nil
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.OwnerID, validation.Required, validation.By(func(value interface{}) error {
			if strings.TrimSpace(value.(string)) == "" {
				return errors.New("cannot be blank")
			}
			return nil
		})),
	)
}

func (f *Funds) ValidateFunds() error {
	amount := f.Amount.String()
	return validation.Validate(amount, validation.Required.Error("amount is required"), validation.By(decimalRule))
}

func (l *CreateLoan) ValidateCreateLoan() error {
	lendAmount := l.LendAmount.String()
	if err := validation.ValidateStruct(l,
		validation.Field(&l.Receiver, validation.Required),
		validation.Field(&l.DueDate, validation.Required, validation.By(dueDateRule)),
		validation.Field(&l.InterestRate, validation.NotNil.Error("interest_rate is required"), validation.Min(0)),
	); err != nil {
		return err
	}
	return validation.Validate(lendAmount, validation.Required.Error("lend_amount is required"), validation.By(decimalRule))
}

func (p *PayLoan) ValidatePayLoan() error {
	payedAmount := p.PayedAmount.String()
	if err := validation.ValidateStruct(p,
		validation.Field(&p.LoanID, validation.Required),
	); err != nil {
		return err
	}
	return validation.Validate(payedAmount, validation.Required.Error("payed_amount is required"), validation.By(decimalRule))
}
