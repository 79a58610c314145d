// Copyright (C) 2025  The vaultmail authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package database

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gliepins/vaultmail/internal/models"
)

func TestCreateDataSourceName(t *testing.T) {
	viper.Set("storage.database.filename", "somewhere/file.db")
	viper.Set("storage.database.journalmode", "off")

	dsn := createDataSourceName()
	assert.Equal(t, "file:somewhere/file.db?_foreign_keys=true&_journal_mode=off", dsn)
}

func TestOpenConnection(t *testing.T) {
	conn, err := openInMemory()
	require.NoError(t, err)
	require.NotNil(t, conn)

	rows, err := conn.QueryContext(context.Background(), "select 0 where 0 ;")
	require.NoError(t, err)
	require.NotNil(t, rows)

	assert.NoError(t, rows.Close())
	assert.NoError(t, conn.Close())
}

func openInMemory() (Conn, error) {
	viper.Set("storage.database.filename", ":memory:")
	viper.Set("storage.database.journalmode", "memory")

	return OpenConnection()
}

func TestBeginCommit(t *testing.T) {
	conn, err := openInMemory()
	require.NoError(t, err)
	require.NotNil(t, conn)

	defer conn.Close()

	var (
		ctx         = context.Background()
		vaultboxDao = NewVaultboxDao()
	)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	require.NotNil(t, tx)

	require.NoError(t, vaultboxDao.Insert(ctx, tx, &models.VaultboxEntity{
		ID:          "box-1",
		UserID:      "user-1",
		Domain:      "example.com",
		LocalPart:   "someone",
		DisplayName: "Someone",
		Status:      models.StatusActive,
		Kind:        models.KindEncrypted,
	}))

	vaultboxes, err := vaultboxDao.FindAll(ctx, tx)
	require.NoError(t, err)
	require.Len(t, vaultboxes, 1)

	require.NoError(t, tx.Commit())

	vaultboxes, err = vaultboxDao.FindAll(ctx, conn)
	require.NoError(t, err)
	require.Len(t, vaultboxes, 1)
}

func TestBeginRollback(t *testing.T) {
	conn, err := openInMemory()
	require.NoError(t, err)
	require.NotNil(t, conn)

	defer conn.Close()

	var (
		ctx         = context.Background()
		vaultboxDao = NewVaultboxDao()
	)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, vaultboxDao.Insert(ctx, tx, &models.VaultboxEntity{
		ID:        "box-1",
		UserID:    "user-1",
		Domain:    "example.com",
		LocalPart: "someone",
	}))

	require.NoError(t, tx.Rollback())

	vaultboxes, err := vaultboxDao.FindAll(ctx, conn)
	require.NoError(t, err)
	require.Len(t, vaultboxes, 0)
}

func TestRollbackWith(t *testing.T) {
	conn, err := openInMemory()
	require.NoError(t, err)

	defer conn.Close()

	ctx := context.Background()

	t.Run("after commit", func(t *testing.T) {
		tx, err := conn.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		called := false
		tx.RollbackWith(func() { called = true })
		assert.False(t, called)
	})

	t.Run("without commit", func(t *testing.T) {
		tx, err := conn.Begin(ctx)
		require.NoError(t, err)

		called := false
		assert.NoError(t, tx.RollbackWith(func() { called = true }))
		assert.True(t, called)
	})
}
