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
	"database/sql"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

// HealthStatus holds the result of a health check against one pool.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

type poolEntry struct {
	params ConnectionParameters
	sqlDB  *sql.DB
	db     *bun.DB
}

// PoolRegistry is the process-wide cache of connection pools, keyed by the
// canonical serialization of their parameters. It is the only shared mutable
// resource of the database core and serializes its own mutations, so
// concurrent first-time use of one parameter set creates exactly one pool.
type PoolRegistry struct {
	mu            sync.Mutex
	started       bool
	pools         map[string]*poolEntry
	logger        Logger
	queryLog      bool
	slowQueryTime time.Duration
	hooks         []ConnectorHook
}

// NewPoolRegistry returns a registry. It must be started before use.
func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{logger: GetLogger()}
}

// SetLogger replaces the registry logger.
func (r *PoolRegistry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger != nil {
		r.logger = logger
	}
}

// EnableQueryLog turns per-statement console logging on or off. Takes effect
// for pools created afterwards.
func (r *PoolRegistry) EnableQueryLog(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queryLog = enabled
	r.rebuildHooks()
}

// SetSlowQueryTime enables slow-query warnings above the given threshold.
func (r *PoolRegistry) SetSlowQueryTime(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slowQueryTime = d
	r.rebuildHooks()
}

func (r *PoolRegistry) rebuildHooks() {
	r.hooks = r.hooks[:0]
	if r.queryLog {
		r.hooks = append(r.hooks, NewQueryLogHook())
	}
	if r.slowQueryTime > 0 {
		r.hooks = append(r.hooks, NewSlowQueryHook(r.slowQueryTime))
	}
}

// Start initializes the registry. Calling Start on a started registry resets
// it: every existing pool is closed first.
func (r *PoolRegistry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		for key, entry := range r.pools {
			if err := entry.db.Close(); err != nil {
				r.logger.Warn("Failed to close pool during restart", "key", key, "error", err)
			}
		}
	}
	r.pools = make(map[string]*poolEntry)
	r.started = true
}

// End closes every registered pool and shuts the registry down. Every pool is
// attempted; the first close failure is re-raised wrapped as DatabaseError.
func (r *PoolRegistry) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for key, entry := range r.pools {
		if err := entry.db.Close(); err != nil && firstErr == nil {
			firstErr = err
			r.logger.Error("Failed to close pool", "key", key, "error", err)
		}
	}
	r.pools = nil
	r.started = false
	if firstErr != nil {
		return &DatabaseError{Message: "failed to close connection pool", Err: firstErr}
	}
	return nil
}

// acquire resolves or lazily creates the pool for a parameter set. It fails
// with DatabaseError when the registry has not been started.
func (r *PoolRegistry) acquire(params ConnectionParameters) (*poolEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil, NewDatabaseError("connection pool has not been started")
	}
	key := params.PoolKey()
	if entry, ok := r.pools[key]; ok {
		return entry, nil
	}
	sqlDB, db, err := params.Open()
	if err != nil {
		return nil, &DatabaseError{Message: "failed to create connection pool", Err: err}
	}
	if r.queryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	entry := &poolEntry{params: params, sqlDB: sqlDB, db: db}
	r.pools[key] = entry
	r.logger.Info("Connection pool created:", "backend", params.Backend())
	return entry, nil
}

// DB returns the shared Bun handle for a parameter set, creating the pool on
// first use. Intended for callers that want builder-style access on the same
// pool a Connector borrows from.
func (r *PoolRegistry) DB(params ConnectionParameters) (*bun.DB, error) {
	entry, err := r.acquire(params)
	if err != nil {
		return nil, err
	}
	return entry.db, nil
}

// HealthCheck pings the pool of a parameter set and reports its condition.
func (r *PoolRegistry) HealthCheck(ctx context.Context, params ConnectionParameters) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	entry, err := r.acquire(params)
	if err != nil {
		status.LastError = err.Error()
		return status
	}
	status.Connected = true

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	pingErr := entry.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)
	if pingErr != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = pingErr.Error()
	} else {
		status.Healthy = true
	}

	stats := entry.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

// Stats returns pool statistics for a parameter set, or zero statistics when
// no pool exists yet.
func (r *PoolRegistry) Stats(params ConnectionParameters) *DBStats {
	r.mu.Lock()
	entry, ok := r.pools[params.PoolKey()]
	r.mu.Unlock()
	if !ok {
		return &DBStats{}
	}
	stats := entry.sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (r *PoolRegistry) connectorHooks() []ConnectorHook {
	r.mu.Lock()
	defer r.mu.Unlock()
	hooks := make([]ConnectorHook, len(r.hooks))
	copy(hooks, r.hooks)
	return hooks
}
