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
	"encoding/json"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/internal/request"
	"github.com/maxilambruschini/payments/model"
	"github.com/sirupsen/logrus"
)

const (
	EventTransactionApplied = "transaction.applied"
	EventLoanIssued         = "loan.issued"
	EventLoanRepaid         = "loan.repaid"
	EventLoanClosed         = "loan.closed"
)

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// SendWebhook enqueues a webhook notification task. It does nothing when no
// queue is configured.
func (p *Payments) SendWebhook(newWebhook NewWebhook) error {
	if p.queue == nil {
		return nil
	}
	return p.queue.enqueueWebhook(newWebhook)
}

// publish sends events for a committed operation. Delivery problems never
// fail the operation itself.
func (p *Payments) publish(events ...NewWebhook) {
	for _, event := range events {
		if err := p.SendWebhook(event); err != nil {
			logrus.WithField("event", event.Event).Warnf("webhook not queued: %v", err)
		}
	}
}

func transactionEvent(txn *model.Transaction) NewWebhook {
	return NewWebhook{Event: EventTransactionApplied, Payload: txn}
}

func loanEvents(event string, loan *model.Loan) []NewWebhook {
	events := []NewWebhook{{Event: event, Payload: loan}}
	if event == EventLoanRepaid && loan.IsClosed() {
		events = append(events, NewWebhook{Event: EventLoanClosed, Payload: loan})
	}
	return events
}

// processHTTP posts a webhook to the configured URL with the configured headers.
func processHTTP(ctx context.Context, conf *config.Configuration, data NewWebhook) error {
	payload, err := request.ToJsonReq(data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	_, err = request.Call(req, nil)
	return err
}

// ProcessWebhook delivers a queued webhook. A failed delivery is returned so
// asynq retries it.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("invalid webhook task payload: %v", err)
		return err
	}

	logrus.WithField("event", payload.Event).Info("delivering webhook")
	return processHTTP(ctx, conf, payload)
}
