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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
)

const accountColumns = "account_id, owner_id, balance, created_at, meta_data"

// CreateAccount inserts a new account.
// Parameters:
// - account: The account to store. Its balance is stored as given, normally zero.
// Returns:
// - error: CONFLICT if the owner already has an account or the ID is taken.
func (d *Datasource) CreateAccount(ctx context.Context, account *model.Account) error {
	metaDataJSON, err := json.Marshal(account.MetaData)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrBadRequest, "invalid account metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO payments.accounts (account_id, owner_id, balance, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5)
	`, account.AccountID, account.OwnerID, account.Balance, account.CreatedAt, metaDataJSON)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to create account for owner %s", account.OwnerID))
	}
	return nil
}

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	account := &model.Account{}
	var metaDataJSON []byte
	if err := row.Scan(&account.AccountID, &account.OwnerID, &account.Balance, &account.CreatedAt, &metaDataJSON); err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &account.MetaData); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (d *Datasource) getAccount(ctx context.Context, column, value string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM payments.accounts WHERE %s = $1
	`, accountColumns, column), value)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with %s '%s' not found", column, value), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to retrieve account", err)
	}
	return account, nil
}

// GetAccountByID retrieves an account by its ID.
func (d *Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return d.getAccount(ctx, "account_id", id)
}

// GetAccountByOwner retrieves the account belonging to ownerID.
func (d *Datasource) GetAccountByOwner(ctx context.Context, ownerID string) (*model.Account, error) {
	return d.getAccount(ctx, "owner_id", ownerID)
}

// GetAllAccounts retrieves accounts in creation order. A limit of zero
// returns every account after offset.
func (d *Datasource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments.accounts ORDER BY id`, accountColumns)
	args := []interface{}{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to retrieve accounts", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan account", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to iterate accounts", err)
	}
	return accounts, nil
}

// GetBalance reads the committed balance of an account.
func (d *Datasource) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := d.Conn.QueryRowContext(ctx, `
		SELECT balance FROM payments.accounts WHERE account_id = $1
	`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", accountID), err)
		}
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "failed to retrieve balance", err)
	}
	return balance, nil
}

// DeleteAccount removes an account. The foreign keys on the log and on loans
// make Postgres refuse the delete while anything references the account.
func (d *Datasource) DeleteAccount(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `DELETE FROM payments.accounts WHERE account_id = $1`, id)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to delete account %s", id))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", id), nil)
	}
	return nil
}
