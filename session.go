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

// Package remora is a multi-backend relational database access layer. It
// pools connections per parameter set, pins each unit of work to one
// Connector, and binds table rows to ordered in-memory records through the
// record package. See the database and record packages for the full API; this
// package only carries the session helpers.
package remora

import (
	"context"
	"fmt"

	"github.com/tomoncle/remora/database"
)

// WithSession borrows a connection from the default registry, runs fn with
// it, and releases it afterwards regardless of outcome.
func WithSession(ctx context.Context, params database.ConnectionParameters, fn func(*database.Connector) error) error {
	connector, err := database.Connect(ctx, params)
	if err != nil {
		return err
	}
	defer func() { _ = connector.Close() }()
	return fn(connector)
}

// WithTransaction runs fn inside a transaction on a borrowed connection. The
// transaction commits when fn returns nil and rolls back when fn returns an
// error or panics; panics are re-raised after the rollback.
func WithTransaction(ctx context.Context, params database.ConnectionParameters, fn func(*database.Connector) error) error {
	return WithSession(ctx, params, func(connector *database.Connector) (err error) {
		if err = connector.Begin(ctx); err != nil {
			return err
		}
		defer func() {
			if p := recover(); p != nil {
				_ = connector.Rollback(ctx)
				panic(p)
			}
			if err != nil {
				if rerr := connector.Rollback(ctx); rerr != nil {
					err = fmt.Errorf("%w (rollback failed: %v)", err, rerr)
				}
			}
		}()
		if err = fn(connector); err != nil {
			return err
		}
		return connector.Commit(ctx)
	})
}
