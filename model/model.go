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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AccountPrefix     = "acc"
	TransactionPrefix = "txn"
	LoanPrefix        = "loan"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix,
// e.g. "acc_5f0c...".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// HashTxn generates a SHA-256 hash over the fields of a transaction record.
// Any later change to the stored record makes the hash mismatch.
func (transaction *Transaction) HashTxn() string {
	data := fmt.Sprintf("%s%s%s%s%s",
		transaction.TransactionID,
		transaction.Source,
		transaction.Destination,
		transaction.Amount.StringFixed(AmountScale),
		transaction.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
