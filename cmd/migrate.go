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

	"github.com/maxilambruschini/payments"
	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/database"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

func migrateCommands(app *paymentsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run payments schema migrations",
	}

	cmd.AddCommand(migrateCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrateCommand(app, "down", migrate.Down))

	return cmd
}

// migrateCommand applies the embedded sql/ migrations in one direction.
func migrateCommand(app *paymentsInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use: use,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cnf.DataSource.Driver == config.DRIVER_MEMORY {
				return fmt.Errorf("the %s driver has no schema to migrate", config.DRIVER_MEMORY)
			}

			db, err := database.ConnectDB(app.cnf.DataSource.Dns)
			if err != nil {
				return fmt.Errorf("error connecting to database: %w", err)
			}
			defer db.Close()

			migrations := migrate.EmbedFileSystemMigrationSource{
				FileSystem: payments.SQLFiles,
				Root:       "sql",
			}
			migrate.SetSchema("payments")

			n, err := migrate.Exec(db, "postgres", migrations, direction)
			if err != nil {
				return fmt.Errorf("error migrating %s: %w", use, err)
			}
			fmt.Printf("Applied %d migrations %s!\n", n, use)
			return nil
		},
	}
}
