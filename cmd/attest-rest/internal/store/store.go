/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package store opens the storage provider named by a datasource URL.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	mongodbstore "github.com/hyperledger/aries-framework-go-ext/component/storage/mongodb"
	mysqlstore "github.com/hyperledger/aries-framework-go-ext/component/storage/mysql"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

// DefaultTimeout is the number of connection attempts, one per second, when no timeout is given.
const DefaultTimeout = 30

const sleep = 1 * time.Second

var logger = log.New("edge-attest/store")

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(dsn, prefix string) (storage.Provider, error){
	"mem": func(_, _ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	"leveldb": func(path, _ string) (storage.Provider, error) { // nolint:unparam
		return leveldb.NewProvider(path), nil
	},
	"mysql": func(dsn, prefix string) (storage.Provider, error) {
		return mysqlstore.NewProvider(dsn, mysqlstore.WithDBPrefix(prefix))
	},
	"mongodb": func(dsn, prefix string) (storage.Provider, error) {
		return mongodbstore.NewProvider("mongodb://"+dsn, mongodbstore.WithDBPrefix(prefix))
	},
}

// Drivers lists the supported datasource drivers.
func Drivers() []string {
	return []string{"mem", "leveldb", "mysql", "mongodb"}
}

// Open connects to the datasource at dbURL, retrying once a second for up to timeout attempts.
func Open(dbURL string, timeout uint64, prefix string) (storage.Provider, error) {
	driver, dsn, err := getDBParams(dbURL)
	if err != nil {
		return nil, err
	}

	providerFunc, supported := supportedStorageProviders[driver]
	if !supported {
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	var provider storage.Provider

	err = retry(func() error {
		var openErr error
		provider, openErr = providerFunc(dsn, prefix)

		return openErr
	}, timeout)
	if err != nil {
		return nil, fmt.Errorf("store init - failed to connect to storage at %s : %w", dsn, err)
	}

	return provider, nil
}

func getDBParams(dbURL string) (driver, dsn string, err error) {
	const (
		urlParts = 2
	)

	parsed := strings.SplitN(dbURL, ":", urlParts)

	if len(parsed) != urlParts {
		return "", "", fmt.Errorf("invalid dbURL %s", dbURL)
	}

	driver = parsed[0]
	dsn = strings.TrimPrefix(parsed[1], "//")

	return driver, dsn, nil
}

func retry(fn func() error, timeout uint64) error {
	numRetries := uint64(DefaultTimeout)

	if timeout != 0 {
		numRetries = timeout
	}

	return backoff.RetryNotify(
		fn,
		backoff.WithMaxRetries(backoff.NewConstantBackOff(sleep), numRetries),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s",
				t, retryErr)
		},
	)
}
