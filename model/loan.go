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
	"fmt"
	"time"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusOpen   LoanStatus = "OPEN"
	LoanStatusClosed LoanStatus = "CLOSED"
)

var hundred = decimal.NewFromInt(100)

// LoanTerms are the caller supplied parameters of a new loan.
type LoanTerms struct {
	Loaner       string
	Receiver     string
	Principal    decimal.Decimal
	InterestRate int
	DueDate      time.Time
}

// Loan is a peer to peer credit agreement. Interest is flat and fixed when
// the loan is issued.
type Loan struct {
	LoanID         string          `json:"loan_id"`
	Loaner         string          `json:"loaner"`
	Receiver       string          `json:"receiver"`
	Principal      decimal.Decimal `json:"lend_amount"`
	InterestRate   int             `json:"interest_rate"`
	DueDate        time.Time       `json:"due_date"`
	LoanDays       int             `json:"loan_days"`
	ReturnDate     *time.Time      `json:"return_date"`
	ReturnedAmount decimal.Decimal `json:"returned_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LoanFilter narrows GetLoans. AccountID matches either party.
type LoanFilter struct {
	AccountID string
	Status    LoanStatus
}

// TotalDue returns principal * (100 + rate) / 100 rounded half-to-even to
// two decimal places.
func TotalDue(principal decimal.Decimal, interestRate int) decimal.Decimal {
	factor := hundred.Add(decimal.NewFromInt(int64(interestRate)))
	return principal.Mul(factor).Div(hundred).RoundBank(AmountScale)
}

func (t LoanTerms) Validate(now time.Time) error {
	if t.Loaner == "" || t.Receiver == "" {
		return apierror.NewAPIError(apierror.ErrInvalidLoanTerms, "loaner and receiver are required", nil)
	}
	if t.Loaner == t.Receiver {
		return apierror.NewAPIError(apierror.ErrInvalidLoanTerms, "loaner and receiver must be different accounts", nil)
	}
	if err := ValidateAmount(t.Principal); err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidLoanTerms, "invalid principal: "+err.Error(), nil)
	}
	if t.InterestRate < 0 {
		return apierror.NewAPIError(apierror.ErrInvalidLoanTerms, fmt.Sprintf("interest rate must not be negative, got %d", t.InterestRate), nil)
	}
	if !t.DueDate.After(now) {
		return apierror.NewAPIError(apierror.ErrInvalidLoanTerms, "due date must be in the future", nil)
	}
	return nil
}

// NewLoan validates the terms and builds an open loan issued at now.
func NewLoan(terms LoanTerms, now time.Time) (*Loan, error) {
	if err := terms.Validate(now); err != nil {
		return nil, err
	}
	return &Loan{
		LoanID:         GenerateUUIDWithSuffix(LoanPrefix),
		Loaner:         terms.Loaner,
		Receiver:       terms.Receiver,
		Principal:      terms.Principal,
		InterestRate:   terms.InterestRate,
		DueDate:        terms.DueDate.UTC(),
		LoanDays:       int(terms.DueDate.Sub(now) / (24 * time.Hour)),
		ReturnedAmount: decimal.Zero,
		CreatedAt:      now.UTC(),
	}, nil
}

func (l *Loan) TotalDue() decimal.Decimal {
	return TotalDue(l.Principal, l.InterestRate)
}

func (l *Loan) Remaining() decimal.Decimal {
	return l.TotalDue().Sub(l.ReturnedAmount)
}

func (l *Loan) IsClosed() bool {
	return l.ReturnDate != nil
}

func (l *Loan) Status() LoanStatus {
	if l.IsClosed() {
		return LoanStatusClosed
	}
	return LoanStatusOpen
}

// CheckRepayment reports why amount cannot be applied to the loan, if it
// cannot.
func (l *Loan) CheckRepayment(amount decimal.Decimal) error {
	if l.IsClosed() {
		return apierror.NewAPIError(apierror.ErrLoanAlreadyClosed, fmt.Sprintf("loan %s is already returned", l.LoanID), nil)
	}
	if amount.GreaterThan(l.Remaining()) {
		return apierror.NewAPIError(apierror.ErrOverpaymentRejected,
			fmt.Sprintf("payed amount %s is greater than the amount owed %s", amount.StringFixed(AmountScale), l.Remaining().StringFixed(AmountScale)), nil)
	}
	return nil
}

// ApplyRepayment adds amount to the returned total and closes the loan when
// it reaches the total due.
func (l *Loan) ApplyRepayment(amount decimal.Decimal, at time.Time) error {
	if err := l.CheckRepayment(amount); err != nil {
		return err
	}
	l.ReturnedAmount = l.ReturnedAmount.Add(amount)
	if l.ReturnedAmount.Equal(l.TotalDue()) {
		returned := at.UTC()
		l.ReturnDate = &returned
	}
	return nil
}

func (f LoanFilter) Matches(l *Loan) bool {
	if f.AccountID != "" && l.Loaner != f.AccountID && l.Receiver != f.AccountID {
		return false
	}
	if f.Status != "" && l.Status() != f.Status {
		return false
	}
	return true
}

// MarshalJSON adds the derived fields to the stored ones.
func (l Loan) MarshalJSON() ([]byte, error) {
	type loan Loan
	return json.Marshal(struct {
		loan
		TotalDue  decimal.Decimal `json:"total_due"`
		Remaining decimal.Decimal `json:"remaining"`
		Status    LoanStatus      `json:"status"`
	}{
		loan:      loan(l),
		TotalDue:  l.TotalDue(),
		Remaining: l.Remaining(),
		Status:    l.Status(),
	})
}
