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
	"encoding/json"
	"time"

	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
)

type CreateAccount struct {
	OwnerID  string                 `json:"owner_id"`
	MetaData map[string]interface{} `json:"meta_data"`
}

// Funds is the body of fund creation, fund destruction and transfers.
type Funds struct {
	Amount json.Number `json:"amount"`
}

// CreateLoan is issued by the loaner; the loaner is the calling account.
type CreateLoan struct {
	Receiver     string      `json:"receiver"`
	LendAmount   json.Number `json:"lend_amount"`
	DueDate      string      `json:"due_date"`
	InterestRate *int        `json:"interest_rate"`
}

// PayLoan is sent by the loan receiver.
type PayLoan struct {
	LoanID      string      `json:"loan_id"`
	PayedAmount json.Number `json:"payed_amount"`
}

func (f *Funds) ToAmount() (decimal.Decimal, error) {
	return model.ParseAmount(f.Amount.String())
}

func (p *PayLoan) ToAmount() (decimal.Decimal, error) {
	return model.ParseAmount(p.PayedAmount.String())
}

// ToLoanTerms converts the request into engine terms. The principal is only
// parsed here; its range is checked when the loan is issued.
func (l *CreateLoan) ToLoanTerms(loaner string) (model.LoanTerms, error) {
	principal, err := decimal.NewFromString(l.LendAmount.String())
	if err != nil {
		return model.LoanTerms{}, err
	}
	dueDate, err := parseDueDate(l.DueDate)
	if err != nil {
		return model.LoanTerms{}, err
	}
	rate := 0
	if l.InterestRate != nil {
		rate = *l.InterestRate
	}
	return model.LoanTerms{
		Loaner:       loaner,
		Receiver:     l.Receiver,
		Principal:    principal,
		InterestRate: rate,
		DueDate:      dueDate,
	}, nil
}

var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDueDate accepts an RFC 3339 timestamp or a plain date, which is read
// as midnight UTC.
func parseDueDate(value string) (time.Time, error) {
	var err error
	for _, layout := range dueDateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
