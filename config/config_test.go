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

package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: ""},
	}
	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{DataSource: DataSourceConfig{Driver: "mysql", Dns: "x"}}
	err = cnf.validateAndAddDefaults()
	assert.EqualError(t, err, `unsupported data source driver "mysql"`)

	// The memory driver needs no DNS.
	cnf = Configuration{DataSource: DataSourceConfig{Driver: " Memory "}}
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, DRIVER_MEMORY, cnf.DataSource.Driver)

	cnf = Configuration{
		ProjectName: "",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432"},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, "Payments Ledger", cnf.ProjectName)
	assert.Equal(t, DRIVER_POSTGRES, cnf.DataSource.Driver)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, 30*time.Second, cnf.Lock.Timeout())
	assert.Equal(t, 10*time.Second, cnf.Lock.WaitTimeout())
	assert.Equal(t, time.Hour, cnf.Cache.TTL())
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
	require.NotNil(t, cnf.RateLimit.CleanupIntervalSec)
	assert.Equal(t, DEFAULT_CLEANUP_INTERVAL, *cnf.RateLimit.CleanupIntervalSec)
}

func TestValidateAndAddDefaults_RateLimit(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Driver: DRIVER_MEMORY},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)

	burst := 8
	cnf = Configuration{
		DataSource: DataSourceConfig{Driver: DRIVER_MEMORY},
		RateLimit:  RateLimitConfig{Burst: &burst},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4.0, *cnf.RateLimit.RequestsPerSecond)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "payments.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		LogLevel:    "debug",
		DataSource:  DataSourceConfig{Dns: "temp-dns"},
		Redis:       RedisConfig{Dns: "temp-redis"},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("PAYMENTS_PROJECT_NAME", "Env Project")
	t.Setenv("PAYMENTS_LOCK_TIMEOUT_SEC", "5")
	defer logrus.SetLevel(logrus.InfoLevel)

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, "temp-redis", loadedConfig.Redis.Dns)
	assert.Equal(t, 5, loadedConfig.Lock.TimeoutSec)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestInitConfig_EnvOnly(t *testing.T) {
	t.Setenv("PAYMENTS_DATA_SOURCE_DRIVER", "memory")
	t.Setenv("PAYMENTS_SERVER_PORT", "6000")

	require.NoError(t, InitConfig("does-not-exist.json"))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, DRIVER_MEMORY, loadedConfig.DataSource.Driver)
	assert.Equal(t, "6000", loadedConfig.Server.Port)
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "mocked"})
	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "mocked", cnf.ProjectName)
}
