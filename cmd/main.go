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
	"fmt"
	"os"

	"github.com/maxilambruschini/payments"
	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/database"
	"github.com/maxilambruschini/payments/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI wraps the root cobra command.
type CLI struct {
	cmd *cobra.Command
}

// paymentsInstance is filled in by preRun and shared by every command.
type paymentsInstance struct {
	payments   *payments.Payments
	datasource database.IDataSource
	cnf        *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the engine before any command
// runs.
func preRun(app *paymentsInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		db, p, err := setupPayments(cnf)
		if err != nil {
			notification.NotifyError(err)
			return err
		}

		app.payments = p
		app.datasource = db
		app.cnf = cnf
		return nil
	}
}

func setupPayments(cfg *config.Configuration) (database.IDataSource, *payments.Payments, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting datasource: %v", err)
	}

	p, err := payments.NewFromConfig(db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("error creating payments engine: %v", err)
	}
	return db, p, nil
}

// close releases what preRun opened.
func (app *paymentsInstance) close() {
	if app.payments != nil {
		if err := app.payments.Close(); err != nil {
			logrus.Errorf("error closing queue: %v", err)
		}
	}
	if app.datasource != nil {
		if err := app.datasource.Close(); err != nil {
			logrus.Errorf("error closing datasource: %v", err)
		}
	}
}

func NewCLI() *CLI {
	var configFile string
	app := &paymentsInstance{}

	rootCmd := &cobra.Command{
		Use:   "payments",
		Short: "Payments ledger and loan settlement engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./payments.json", "Configuration file")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) { app.close() }

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
