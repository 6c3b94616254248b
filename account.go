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
	"strings"
	"time"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
)

// CreateAccount provisions the zero-balance account of ownerID. An owner has
// at most one account.
func (p *Payments) CreateAccount(ctx context.Context, ownerID string, metaData map[string]interface{}) (account *model.Account, err error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer func(start time.Time) { finish(span, "create_account", start, err) }(time.Now())

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "owner_id is required", nil)
	}

	account = model.NewAccount(ownerID, p.now())
	account.MetaData = metaData
	if err := p.datasource.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	span.AddEvent("Account created")
	return account, nil
}

func (p *Payments) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "GetAccount")
	defer span.End()
	return p.datasource.GetAccountByID(ctx, id)
}

func (p *Payments) GetAccountByOwner(ctx context.Context, ownerID string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "GetAccountByOwner")
	defer span.End()
	return p.datasource.GetAccountByOwner(ctx, ownerID)
}

// GetAllAccounts lists accounts in creation order. A limit of 0 means no limit.
func (p *Payments) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	ctx, span := tracer.Start(ctx, "GetAllAccounts")
	defer span.End()
	return p.datasource.GetAllAccounts(ctx, limit, offset)
}

func (p *Payments) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()
	return p.datasource.GetBalance(ctx, accountID)
}

// DeleteAccount removes an account that no transaction record or loan
// references.
func (p *Payments) DeleteAccount(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DeleteAccount")
	defer func(start time.Time) { finish(span, "delete_account", start, err) }(time.Now())

	release, err := p.acquire(ctx, accountKeys(id)...)
	if err != nil {
		return err
	}
	defer release()

	return p.datasource.DeleteAccount(ctx, id)
}
