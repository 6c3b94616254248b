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

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/internal/apierror"
)

// Datasource is the Postgres implementation of IDataSource.
type Datasource struct {
	Conn *sql.DB
}

// NewDataSource returns the store selected by the data_source.driver setting.
func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	switch configuration.DataSource.Driver {
	case config.DRIVER_MEMORY:
		return NewMemoryStore(), nil
	case config.DRIVER_POSTGRES, "":
		con, err := ConnectDB(configuration.DataSource.Dns)
		if err != nil {
			return nil, err
		}
		return &Datasource{Conn: con}, nil
	default:
		return nil, fmt.Errorf("unsupported data source driver %q", configuration.DataSource.Driver)
	}
}

// ConnectDB establishes a database connection with pooling.
func ConnectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = db.Ping()
	if err != nil {
		log.Printf("Database connection error ❌: %v", err)
		return nil, err
	}

	log.Println("Database connection established ✅")
	return db, nil
}

func (d *Datasource) Close() error {
	return d.Conn.Close()
}

// mapPQError translates constraint violations raised by Postgres into API
// errors. Anything else becomes an internal error.
func mapPQError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return apierror.NewAPIError(apierror.ErrConflict, message+": record already exists", err)
		case "foreign_key_violation", "restrict_violation":
			return apierror.NewAPIError(apierror.ErrConflict, message+": record is still referenced", err)
		case "check_violation":
			if pqErr.Constraint == "accounts_balance_check" {
				return apierror.NewAPIError(apierror.ErrInsufficientFunds, message+": balance out of range", err)
			}
			return apierror.NewAPIError(apierror.ErrInvalidRecord, message+": "+pqErr.Message, err)
		}
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, message, err)
}
