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
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT             = "5001"
	DEFAULT_LOCK_TIMEOUT     = 30
	DEFAULT_LOCK_WAIT        = 10
	DEFAULT_CACHE_TTL        = 3600
	DRIVER_POSTGRES          = "postgres"
	DRIVER_MEMORY            = "memory"
	DEFAULT_CLEANUP_INTERVAL = 10800
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"PAYMENTS_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PAYMENTS_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"PAYMENTS_SERVER_PORT"`
}

type DataSourceConfig struct {
	Driver string `json:"driver" envconfig:"PAYMENTS_DATA_SOURCE_DRIVER"`
	Dns    string `json:"dns" envconfig:"PAYMENTS_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"PAYMENTS_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"PAYMENTS_REDIS_SKIP_TLS_VERIFY"`
}

// LockConfig bounds how long an account or loan lock is held and how long a
// caller waits to get one.
type LockConfig struct {
	TimeoutSec     int `json:"timeout_sec" envconfig:"PAYMENTS_LOCK_TIMEOUT_SEC"`
	WaitTimeoutSec int `json:"wait_timeout_sec" envconfig:"PAYMENTS_LOCK_WAIT_TIMEOUT_SEC"`
}

type CacheConfig struct {
	TTLSec int `json:"ttl_sec" envconfig:"PAYMENTS_CACHE_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PAYMENTS_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PAYMENTS_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PAYMENTS_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"PAYMENTS_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url" envconfig:"PAYMENTS_WEBHOOK_URL"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"PAYMENTS_PROJECT_NAME"`
	LogLevel     string           `json:"log_level" envconfig:"PAYMENTS_LOG_LEVEL"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Lock         LockConfig       `json:"lock"`
	Cache        CacheConfig      `json:"cache"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("payments", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	applyLogLevel(cnf.LogLevel)
	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called payments.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Payments Ledger"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Driver = strings.ToLower(strings.TrimSpace(cnf.DataSource.Driver))
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.DataSource.Driver == "" {
		cnf.DataSource.Driver = DRIVER_POSTGRES
	}
	switch cnf.DataSource.Driver {
	case DRIVER_POSTGRES:
		if cnf.DataSource.Dns == "" {
			log.Println("Error: Data source DNS is empty. It's a required field.")
			return errors.New("data source DNS is required")
		}
	case DRIVER_MEMORY:
	default:
		return fmt.Errorf("unsupported data source driver %q", cnf.DataSource.Driver)
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Lock.TimeoutSec <= 0 {
		cnf.Lock.TimeoutSec = DEFAULT_LOCK_TIMEOUT
	}
	if cnf.Lock.WaitTimeoutSec <= 0 {
		cnf.Lock.WaitTimeoutSec = DEFAULT_LOCK_WAIT
	}
	if cnf.Cache.TTLSec <= 0 {
		cnf.Cache.TTLSec = DEFAULT_CACHE_TTL
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := DEFAULT_CLEANUP_INTERVAL
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (l LockConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

func (l LockConfig) WaitTimeout() time.Duration {
	return time.Duration(l.WaitTimeoutSec) * time.Second
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func applyLogLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.Printf("Warning: unknown log level %q, keeping %s", level, logrus.GetLevel())
		return
	}
	logrus.SetLevel(parsed)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
