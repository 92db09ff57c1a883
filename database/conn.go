/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"sync"
)

var (
	defaultRegistry   *PoolRegistry
	defaultRegistryMu sync.Mutex
)

// GetRegistry returns the process-wide default pool registry, creating it on
// first use. Applications composing their own lifecycle should instead hold a
// registry from NewPoolRegistry.
func GetRegistry() *PoolRegistry {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewPoolRegistry()
	}
	return defaultRegistry
}

// PoolStart initializes the default registry. Calling it again resets the
// registry, closing every pool first.
func PoolStart() {
	GetRegistry().Start()
}

// PoolEnd closes every pool of the default registry and shuts it down.
func PoolEnd() error {
	return GetRegistry().End()
}

// Connect borrows a connection for a parameter set from the default registry.
func Connect(ctx context.Context, params ConnectionParameters) (*Connector, error) {
	return GetRegistry().Connect(ctx, params)
}

// ConnectWithConfig resolves connection parameters from a configuration
// section, applies its observability settings to the default registry, and
// connects.
func ConnectWithConfig(ctx context.Context, cfg *ConnectionConfig) (*Connector, error) {
	if cfg == nil {
		return nil, NewDatabaseError("database configuration cannot be empty")
	}
	params, err := cfg.Parameters()
	if err != nil {
		return nil, err
	}
	registry := GetRegistry()
	registry.EnableQueryLog(cfg.EnableQueryLog)
	registry.SetSlowQueryTime(cfg.SlowQueryTime)
	connector, err := registry.Connect(ctx, params)
	if err != nil {
		return nil, err
	}
	if cfg.StatementTimeout > 0 {
		if terr := connector.SetStatementTimeout(ctx, cfg.StatementTimeout); terr != nil {
			_ = connector.Close()
			return nil, terr
		}
	}
	return connector, nil
}
