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

package redis_db

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the client shared by the account locks, the record cache and
// the webhook queue.
type Redis struct {
	addresses []string
	client    redis.UniversalClient
}

// ParseRedisURL accepts both plain "host:port" addresses and redis:// URLs.
func ParseRedisURL(rawURL string, skipTLSVerify bool) (*redis.Options, error) {
	if !strings.Contains(rawURL, "//") && !strings.Contains(rawURL, "@") {
		return &redis.Options{Addr: rawURL}, nil
	}

	// redis://password@host:port is accepted as shorthand for redis://:password@host:port
	if strings.HasPrefix(rawURL, "redis://") && strings.Contains(rawURL, "@") {
		auth, host, _ := strings.Cut(strings.TrimPrefix(rawURL, "redis://"), "@")
		if !strings.Contains(auth, ":") {
			rawURL = "redis://:" + auth + "@" + host
		}
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if opts.TLSConfig != nil && skipTLSVerify {
		opts.TLSConfig.InsecureSkipVerify = true
	}
	return opts, nil
}

// NewRedisClient connects to a single instance, or to a cluster when more
// than one address is given, and pings it.
func NewRedisClient(addresses []string, skipTLSVerify bool) (*Redis, error) {
	if len(addresses) == 0 {
		return nil, errors.New("redis addresses list cannot be empty")
	}

	var client redis.UniversalClient
	if len(addresses) == 1 {
		opts, err := ParseRedisURL(addresses[0], skipTLSVerify)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opts)
	} else {
		universal := &redis.UniversalOptions{}
		for _, addr := range addresses {
			opts, err := ParseRedisURL(addr, skipTLSVerify)
			if err != nil {
				return nil, err
			}
			universal.Addrs = append(universal.Addrs, opts.Addr)
			if universal.Password == "" {
				universal.Password = opts.Password
			}
			if opts.TLSConfig != nil && universal.TLSConfig == nil {
				universal.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: skipTLSVerify}
			}
		}
		client = redis.NewUniversalClient(universal)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{addresses: addresses, client: client}, nil
}

func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}
