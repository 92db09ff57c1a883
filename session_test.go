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

package remora

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/remora/database"
)

func testParams(t *testing.T) database.SQLiteParameters {
	t.Helper()
	database.PoolStart()
	t.Cleanup(func() { _ = database.PoolEnd() })
	return database.SQLiteParameters{DatabaseFile: filepath.Join(t.TempDir(), "session.db")}
}

func TestWithSession(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	var leaked *database.Connector
	err := WithSession(ctx, params, func(c *database.Connector) error {
		leaked = c
		_, err := c.Execute(ctx, "CREATE TABLE t (id INTEGER)")
		return err
	})
	require.NoError(t, err)

	// the connector is released even though the callback kept a reference
	_, err = leaked.Execute(ctx, "SELECT 1")
	assert.Error(t, err)

	sentinel := errors.New("callback failed")
	err = WithSession(ctx, params, func(*database.Connector) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestWithTransactionCommit(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	require.NoError(t, WithSession(ctx, params, func(c *database.Connector) error {
		_, err := c.Execute(ctx, "CREATE TABLE t (id INTEGER)")
		return err
	}))

	err := WithTransaction(ctx, params, func(c *database.Connector) error {
		require.True(t, c.InTransaction())
		_, err := c.Execute(ctx, "INSERT INTO t (id) VALUES (?)", 1)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, WithSession(ctx, params, func(c *database.Connector) error {
		count, err := c.FetchField(ctx, "SELECT COUNT(*) FROM t")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), count.Int64())
		return nil
	}))
}

func TestWithTransactionRollback(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	require.NoError(t, WithSession(ctx, params, func(c *database.Connector) error {
		_, err := c.Execute(ctx, "CREATE TABLE t (id INTEGER)")
		return err
	}))

	sentinel := errors.New("abort")
	err := WithTransaction(ctx, params, func(c *database.Connector) error {
		if _, err := c.Execute(ctx, "INSERT INTO t (id) VALUES (?)", 1); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	require.NoError(t, WithSession(ctx, params, func(c *database.Connector) error {
		count, err := c.FetchField(ctx, "SELECT COUNT(*) FROM t")
		if err != nil {
			return err
		}
		assert.Zero(t, count.Int64(), "the insert rolled back")
		return nil
	}))
}

func TestWithTransactionPanic(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	require.NoError(t, WithSession(ctx, params, func(c *database.Connector) error {
		_, err := c.Execute(ctx, "CREATE TABLE t (id INTEGER)")
		return err
	}))

	assert.Panics(t, func() {
		_ = WithTransaction(ctx, params, func(c *database.Connector) error {
			_, _ = c.Execute(ctx, "INSERT INTO t (id) VALUES (?)", 1)
			panic("boom")
		})
	})

	require.NoError(t, WithSession(ctx, params, func(c *database.Connector) error {
		count, err := c.FetchField(ctx, "SELECT COUNT(*) FROM t")
		if err != nil {
			return err
		}
		assert.Zero(t, count.Int64(), "the insert rolled back on panic")
		return nil
	}))
}
