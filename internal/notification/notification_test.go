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
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/maxilambruschini/payments/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slackURL = "https://hooks.slack.test/services/T000/B000/XXX"

func TestSlackPayloadIsValidJSON(t *testing.T) {
	payload := slackPayload(errors.New(`balance "mismatch" on acc_1`), time.Now(), "Payments Ledger")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Len(t, decoded["blocks"], 3)
}

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		ProjectName:  "Payments Ledger",
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: slackURL}},
	})

	var body map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, slackURL, func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	err := SlackNotification(errors.New("ledger out of balance"))
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	blocks, ok := body["blocks"].([]interface{})
	require.True(t, ok)
	header := blocks[0].(map[string]interface{})["text"].(map[string]interface{})
	assert.Equal(t, "Error From Payments Ledger 🐞", header["text"])
}

func TestSlackNotification_Failure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: slackURL}},
	})
	httpmock.RegisterResponder(http.MethodPost, slackURL, httpmock.NewStringResponder(http.StatusForbidden, "invalid_token"))

	err := SlackNotification(errors.New("boom"))
	assert.Error(t, err)
}

func TestNotifyForwardsToWebhookSender(t *testing.T) {
	config.MockConfig(&config.Configuration{})
	defer RegisterWebhookSender(nil)

	var capturedEvent string
	var capturedPayload interface{}
	RegisterWebhookSender(func(event string, payload interface{}) error {
		capturedEvent = event
		capturedPayload = payload
		return nil
	})

	notify(errors.New("boom"))

	assert.Equal(t, SystemErrorEvent, capturedEvent)
	payload, ok := capturedPayload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", payload["error"])
}

func TestNotifyWithoutSlackSkipsHTTP(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	config.MockConfig(&config.Configuration{})

	notify(errors.New("boom"))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestRegisterWebhookSender_ReplacesPrevious(t *testing.T) {
	defer RegisterWebhookSender(nil)
	callCount := 0

	RegisterWebhookSender(func(event string, payload interface{}) error {
		callCount = 1
		return nil
	})
	RegisterWebhookSender(func(event string, payload interface{}) error {
		callCount = 2
		return nil
	})

	_ = currentSender()("test.event", nil)
	assert.Equal(t, 2, callCount)
}
