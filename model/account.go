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
	"time"

	"github.com/shopspring/decimal"
)

// Account holds the balance of a single owner. The balance only changes
// through debits and credits applied by a committed transfer.
type Account struct {
	AccountID string                 `json:"account_id"`
	OwnerID   string                 `json:"owner_id"`
	Balance   decimal.Decimal        `json:"balance"`
	CreatedAt time.Time              `json:"created_at"`
	MetaData  map[string]interface{} `json:"meta_data,omitempty"`
}

func NewAccount(ownerID string, createdAt time.Time) *Account {
	return &Account{
		AccountID: GenerateUUIDWithSuffix(AccountPrefix),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		CreatedAt: createdAt.UTC(),
	}
}
