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

package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/internal/cache"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// IssueLoan moves the principal from the loaner to the receiver and records
// the loan in the same storage transaction.
func (p *Payments) IssueLoan(ctx context.Context, terms model.LoanTerms) (loan *model.Loan, err error) {
	ctx, span := tracer.Start(ctx, "IssueLoan")
	defer func(start time.Time) { finish(span, "issue_loan", start, err) }(time.Now())

	now := p.now()
	loan, err = model.NewLoan(terms, now)
	if err != nil {
		return nil, err
	}

	txn, err := model.NewTransaction(loan.Loaner, loan.Receiver, loan.Principal)
	if err != nil {
		return nil, apierror.Wrap(apierror.ErrTransferFailed, "loan principal transfer failed", err)
	}
	txn.Stamp(now)

	release, err := p.acquire(ctx, accountKeys(loan.Loaner, loan.Receiver)...)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := p.datasource.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(tx, "issue_loan")

	if err := p.applyTransfer(ctx, tx, txn); err != nil {
		return nil, apierror.Wrap(apierror.ErrTransferFailed, "loan principal transfer failed", err)
	}
	if err := tx.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	span.AddEvent("Loan issued")

	p.transactionCommitted(txn)
	p.publish(loanEvents(EventLoanIssued, loan)...)
	return loan, nil
}

// RepayLoan applies a repayment of amount by payer. The checks run in a fixed
// order so a request failing several of them always gets the same error:
// amount, existence, closed, overpayment, payer. Repayments of one loan are
// serialized by the loan lock.
func (p *Payments) RepayLoan(ctx context.Context, loanID, payer string, amount decimal.Decimal) (loan *model.Loan, err error) {
	ctx, span := tracer.Start(ctx, "RepayLoan")
	defer func(start time.Time) { finish(span, "repay_loan", start, err) }(time.Now())

	if err := model.ValidateAmount(amount); err != nil {
		return nil, err
	}

	// Loan parties never change, so they can be read before locking.
	current, err := p.datasource.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	keys := append(accountKeys(current.Loaner, current.Receiver), loanLockPrefix+loanID)
	release, err := p.acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := p.datasource.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(tx, "repay_loan")

	loan, err = tx.GetLoanForUpdate(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.CheckRepayment(amount); err != nil {
		return nil, err
	}
	if payer != loan.Receiver {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorizedPayer,
			fmt.Sprintf("account %s is not the receiver of loan %s", payer, loanID), nil)
	}

	now := p.now()
	txn, err := model.NewTransaction(loan.Receiver, loan.Loaner, amount)
	if err != nil {
		return nil, apierror.Wrap(apierror.ErrTransferFailed, "repayment transfer failed", err)
	}
	txn.Stamp(now)
	if err := p.applyTransfer(ctx, tx, txn); err != nil {
		return nil, apierror.Wrap(apierror.ErrTransferFailed, "repayment transfer failed", err)
	}

	if err := loan.ApplyRepayment(amount, now); err != nil {
		return nil, err
	}
	if err := tx.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	span.AddEvent("Repayment committed")

	if loan.IsClosed() {
		p.cacheLoan(ctx, loan)
	}
	p.transactionCommitted(txn)
	p.publish(loanEvents(EventLoanRepaid, loan)...)
	return loan, nil
}

// GetLoanStatus returns a loan with its derived status. Closed loans are
// immutable and served from the cache.
func (p *Payments) GetLoanStatus(ctx context.Context, loanID string) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "GetLoanStatus")
	defer span.End()

	cached := &model.Loan{}
	err := p.cache.Get(ctx, loanCachePrefix+loanID, cached)
	if err == nil {
		span.AddEvent("Loan served from cache")
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logrus.WithField("loan_id", loanID).Warnf("loan cache read failed: %v", err)
	}

	loan, err := p.datasource.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsClosed() {
		p.cacheLoan(ctx, loan)
	}
	return loan, nil
}

// GetLoans lists loans in creation order.
func (p *Payments) GetLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	ctx, span := tracer.Start(ctx, "GetLoans")
	defer span.End()
	return p.datasource.GetLoans(ctx, filter)
}

func (p *Payments) cacheLoan(ctx context.Context, loan *model.Loan) {
	if err := p.cache.Set(ctx, loanCachePrefix+loan.LoanID, loan, p.cacheTTL); err != nil {
		logrus.WithField("loan_id", loan.LoanID).Warnf("failed to cache loan: %v", err)
	}
}
