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
	"fmt"
	"time"

	"github.com/maxilambruschini/payments/internal/metrics"
	"github.com/maxilambruschini/payments/internal/notification"
	"github.com/maxilambruschini/payments/model"
	"github.com/sirupsen/logrus"
)

// VerifyLedger replays the whole transaction log and compares the result with
// the stored balances. Balances and log are read separately, so transfers
// committed during the check can show up as transient discrepancies.
func (p *Payments) VerifyLedger(ctx context.Context) (report *model.LedgerReport, err error) {
	ctx, span := tracer.Start(ctx, "VerifyLedger")
	defer func(start time.Time) { finish(span, "verify_ledger", start, err) }(time.Now())

	accounts, err := p.datasource.GetAllAccounts(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	txns, err := p.datasource.ListTransactions(ctx, model.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	report = model.BuildLedgerReport(accounts, txns, p.now())
	metrics.SetLedgerDiscrepancies(len(report.Discrepancies) + len(report.TamperedTransactions))

	logrus.WithFields(logrus.Fields{
		"transactions":  report.TransactionCount,
		"accounts":      report.AccountCount,
		"discrepancies": len(report.Discrepancies),
		"tampered":      len(report.TamperedTransactions),
	}).Info("ledger verified")

	if !report.Balanced {
		notification.NotifyError(fmt.Errorf("ledger verification found %d balance discrepancies and %d tampered records, total balances %s, created %s, destroyed %s",
			len(report.Discrepancies),
			len(report.TamperedTransactions),
			report.TotalBalances.StringFixed(model.AmountScale),
			report.TotalCreated.StringFixed(model.AmountScale),
			report.TotalDestroyed.StringFixed(model.AmountScale)))
	}
	return report, nil
}
