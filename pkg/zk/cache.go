/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package zk

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"golang.org/x/sync/singleflight"
)

// StoreName is the store holding verification keys by program id.
const StoreName = "zkverificationkeys"

const defaultCacheSize = 64

var logger = log.New("edge-attest/zk")

// Cache memoizes compiled circuits by program id. Concurrent misses for one program share a
// single compilation. Failed compilations are not cached.
type Cache struct {
	compiler Compiler
	circuits gcache.Cache
	keys     storage.Store
	group    singleflight.Group
}

// NewCache returns a cache holding up to size circuits in memory. Verification keys are
// persisted to the provider's store.
func NewCache(compiler Compiler, provider storage.Provider, size int) (*Cache, error) {
	if compiler == nil {
		return nil, errors.New("compiler is mandatory")
	}

	keys, err := provider.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("open verification key store: %w", err)
	}

	if size <= 0 {
		size = defaultCacheSize
	}

	return &Cache{
		compiler: compiler,
		circuits: gcache.New(size).LRU().Build(),
		keys:     keys,
	}, nil
}

// Get returns the compiled circuit for program, compiling it on first use.
func (c *Cache) Get(ctx context.Context, program Program) (*Compiled, error) {
	canonical, err := Canonicalize(program)
	if err != nil {
		return nil, err
	}

	id, err := ProgramID(canonical)
	if err != nil {
		return nil, err
	}

	key := id.String()

	if v, err := c.circuits.Get(key); err == nil {
		return v.(*Compiled), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, err := c.circuits.Get(key); err == nil {
			return v, nil
		}

		compiled, err := c.build(ctx, key, canonical)
		if err != nil {
			return nil, err
		}

		if err := c.circuits.Set(key, compiled); err != nil {
			return nil, fmt.Errorf("cache circuit %s: %w", key, err)
		}

		return compiled, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Compiled), nil
}

func (c *Cache) build(ctx context.Context, key string, canonical []byte) (*Compiled, error) {
	if loader, ok := c.compiler.(Loader); ok {
		vk, err := c.keys.Get(key)

		switch {
		case err == nil:
			circuit, loadErr := loader.Load(ctx, canonical, vk)
			if loadErr == nil {
				return &Compiled{Circuit: circuit, VerificationKey: vk}, nil
			}

			logger.Warnf("load circuit %s from stored key: %s", key, loadErr)
		case !errors.Is(err, storage.ErrDataNotFound):
			logger.Warnf("read verification key %s: %s", key, err)
		}
	}

	logger.Infof("compiling circuit %s", key)

	compiled, err := c.compiler.Compile(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrCompilation, key, err.Error())
	}

	if compiled == nil || compiled.Circuit == nil {
		return nil, fmt.Errorf("%w: %s: compiler returned no circuit", ErrCompilation, key)
	}

	if err := c.keys.Put(key, compiled.VerificationKey); err != nil {
		return nil, fmt.Errorf("store verification key %s: %w", key, err)
	}

	return compiled, nil
}
