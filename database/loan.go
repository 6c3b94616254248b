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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
)

const loanColumns = "loan_id, loaner, receiver, principal, interest_rate, due_date, loan_days, return_date, returned_amount, created_at"

func scanLoan(row interface{ Scan(...any) error }) (*model.Loan, error) {
	loan := &model.Loan{}
	var returnDate sql.NullTime
	err := row.Scan(
		&loan.LoanID,
		&loan.Loaner,
		&loan.Receiver,
		&loan.Principal,
		&loan.InterestRate,
		&loan.DueDate,
		&loan.LoanDays,
		&returnDate,
		&loan.ReturnedAmount,
		&loan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		returned := returnDate.Time
		loan.ReturnDate = &returned
	}
	return loan, nil
}

func loanNotFound(id string, err error) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("loan with ID '%s' not found", id), err)
}

// GetLoan retrieves a loan by its ID.
func (d *Datasource) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM payments.loans WHERE loan_id = $1
	`, loanColumns), id)

	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loanNotFound(id, err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to retrieve loan", err)
	}
	return loan, nil
}

// GetLoans lists loans in creation order, optionally narrowed to one party
// or one status.
func (d *Datasource) GetLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	var query strings.Builder
	var conditions []string
	args := []interface{}{}

	query.WriteString(fmt.Sprintf("SELECT %s FROM payments.loans", loanColumns))
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conditions = append(conditions, fmt.Sprintf("(loaner = $%d OR receiver = $%d)", len(args), len(args)))
	}
	switch filter.Status {
	case model.LoanStatusOpen:
		conditions = append(conditions, "return_date IS NULL")
	case model.LoanStatusClosed:
		conditions = append(conditions, "return_date IS NOT NULL")
	}
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY id")

	rows, err := d.Conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to list loans", err)
	}
	defer rows.Close()

	loans := []model.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan loan", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to iterate loans", err)
	}
	return loans, nil
}
