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
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/maxilambruschini/payments/config"
	redis_db "github.com/maxilambruschini/payments/internal/redis-db"
	"github.com/sirupsen/logrus"
)

// WEBHOOK_QUEUE is both the asynq queue and the task type of webhook events.
const WEBHOOK_QUEUE = "payments_webhook_queue"

// Queue represents the asynq client used to hand events to the workers.
type Queue struct {
	Client *asynq.Client
}

// RedisClientOpt converts the configured redis DNS into asynq connection
// options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	opt, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{Client: asynq.NewClient(opt)}, nil
}

func (q *Queue) Close() error {
	return q.Client.Close()
}

// enqueueWebhook queues one event for delivery by the workers.
func (q *Queue) enqueueWebhook(event NewWebhook) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(WEBHOOK_QUEUE, payload, asynq.Queue(WEBHOOK_QUEUE), asynq.MaxRetry(5))
	info, err := q.Client.Enqueue(task)
	if err != nil {
		logrus.WithField("event", event.Event).Errorf("failed to enqueue webhook: %v", err)
		return err
	}
	logrus.WithFields(logrus.Fields{"event": event.Event, "task_id": info.ID}).Debug("webhook queued")
	return nil
}
