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

package main

import (
	"errors"

	"github.com/hibiken/asynq"
	"github.com/maxilambruschini/payments"
	"github.com/maxilambruschini/payments/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	opt, err := payments.RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{payments.WEBHOOK_QUEUE: 1},
		Logger:      logrus.StandardLogger(),
	}), nil
}

// workerCommands returns the command that delivers queued webhook events.
func workerCommands(app *paymentsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start payments webhook workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cnf.Redis.Dns == "" {
				return errors.New("workers need redis: set redis.dns")
			}

			srv, err := initializeWorkerServer(app.cnf)
			if err != nil {
				return err
			}

			mux := asynq.NewServeMux()
			mux.HandleFunc(payments.WEBHOOK_QUEUE, payments.ProcessWebhook)

			logrus.Infof("webhook workers listening on %s", payments.WEBHOOK_QUEUE)
			return srv.Run(mux)
		},
	}

	return cmd
}
