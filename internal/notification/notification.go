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

package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/internal/request"
	"github.com/sirupsen/logrus"
)

// SystemErrorEvent is the webhook event emitted for every notified error.
const SystemErrorEvent = "system.error"

var (
	senderMu      sync.RWMutex
	webhookSender func(event string, payload interface{}) error
)

// RegisterWebhookSender installs the function used to forward notified
// errors as webhook events. The root package registers its queue-backed
// sender at startup so this package does not import it.
func RegisterWebhookSender(sender func(event string, payload interface{}) error) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func currentSender() func(event string, payload interface{}) error {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

func slackPayload(err error, at time.Time, projectName string) json.RawMessage {
	text, _ := json.Marshal(fmt.Sprintf("*Error:*\n%v", err))
	title, _ := json.Marshal(fmt.Sprintf("Error From %s 🐞", projectName))
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{"type": "header", "text": {"type": "plain_text", "text": %s, "emoji": true}},
			{"type": "section", "fields": [{"type": "mrkdwn", "text": %s}]},
			{"type": "section", "fields": [{"type": "mrkdwn", "text": "*Time:*\n%s"}]}
		]
	}`, title, text, at.Format(time.RFC822)))
}

// SlackNotification posts err to the configured Slack webhook.
func SlackNotification(err error) error {
	conf, cfgErr := config.Fetch()
	if cfgErr != nil {
		return cfgErr
	}

	payload, reqErr := request.ToJsonReq(slackPayload(err, time.Now(), conf.ProjectName))
	if reqErr != nil {
		return reqErr
	}

	req, reqErr := http.NewRequest(http.MethodPost, conf.Notification.Slack.WebhookUrl, payload)
	if reqErr != nil {
		return reqErr
	}

	_, reqErr = request.Call(req, nil)
	return reqErr
}

func notify(systemError error) {
	logrus.Error(systemError)

	conf, err := config.Fetch()
	if err != nil {
		logrus.Warn(err)
		return
	}

	if conf.Notification.Slack.WebhookUrl != "" {
		if err := SlackNotification(systemError); err != nil {
			logrus.Warnf("slack notification failed: %v", err)
		}
	}

	if sender := currentSender(); sender != nil {
		payload := map[string]interface{}{
			"error":     systemError.Error(),
			"timestamp": time.Now().UTC(),
		}
		if err := sender(SystemErrorEvent, payload); err != nil {
			logrus.Warnf("error webhook failed: %v", err)
		}
	}
}

// NotifyError logs systemError and forwards it to Slack and the webhook
// sender when configured. It does not block the caller.
func NotifyError(systemError error) {
	go notify(systemError)
}
