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

package transport

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/models"
)

func TestSynchronizerTestSuite(t *testing.T) {
	suite.Run(t, new(SynchronizerTestSuite))
}

type SynchronizerTestSuite struct {
	suite.Suite

	ctx          context.Context
	conn         database.Conn
	vaultboxDao  database.VaultboxDao
	synchronizer *mapFileSynchronizer
	reloads      int
}

func (s *SynchronizerTestSuite) SetupTest() {
	viper.Set("storage.database.filename", ":memory:")
	viper.Set("storage.database.journalmode", "memory")

	conn, err := database.OpenConnection()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.conn = conn
	s.vaultboxDao = database.NewVaultboxDao()
	s.reloads = 0

	s.synchronizer = &mapFileSynchronizer{
		conn:          conn,
		vaultboxDao:   s.vaultboxDao,
		fs:            afero.NewMemMapFs(),
		mapFilename:   "/etc/mta/transport.map",
		transportName: "vaultmail",
		reload: func(context.Context) error {
			s.reloads++
			return nil
		},
	}
}

func (s *SynchronizerTestSuite) TearDownTest() {
	s.Require().NoError(s.conn.Close())
}

func (s *SynchronizerTestSuite) requireVaultbox(id, domain, localPart string) {
	s.Require().NoError(s.vaultboxDao.Insert(s.ctx, s.conn, &models.VaultboxEntity{
		ID:          id,
		UserID:      "user-1",
		Domain:      domain,
		LocalPart:   localPart,
		DisplayName: localPart,
		Status:      models.StatusActive,
		Kind:        models.KindEncrypted,
	}))
}

func (s *SynchronizerTestSuite) readMapFile() string {
	content, err := afero.ReadFile(s.synchronizer.fs, "/etc/mta/transport.map")
	s.Require().NoError(err)
	return string(content)
}

func (s *SynchronizerTestSuite) TestSyncEmpty() {
	s.Require().NoError(s.synchronizer.Sync(s.ctx))

	s.Assert().Equal("", s.readMapFile())
	s.Assert().Equal(1, s.reloads)
}

func (s *SynchronizerTestSuite) TestSyncEntries() {
	s.requireVaultbox("box-2", "example.org", "other")
	s.requireVaultbox("box-1", "example.com", "someone")

	s.Require().NoError(s.synchronizer.Sync(s.ctx))

	s.Assert().Equal(
		"someone@example.com\tvaultmail:box-1\n"+
			"other@example.org\tvaultmail:box-2\n",
		s.readMapFile())
	s.Assert().Equal(1, s.reloads)
}

func (s *SynchronizerTestSuite) TestSyncPunycodeDomain() {
	s.requireVaultbox("box-1", "dömäin.example", "someone")

	s.Require().NoError(s.synchronizer.Sync(s.ctx))

	s.Assert().Equal(
		"someone@xn--dmin-moa0i.example\tvaultmail:box-1\n",
		s.readMapFile())
}

// A second publish fully replaces the previous table instead of appending
// to it.
func (s *SynchronizerTestSuite) TestSyncIdempotent() {
	s.requireVaultbox("box-1", "example.com", "someone")

	s.Require().NoError(s.synchronizer.Sync(s.ctx))
	s.Require().NoError(s.synchronizer.Sync(s.ctx))

	s.Assert().Equal(
		"someone@example.com\tvaultmail:box-1\n",
		s.readMapFile())
	s.Assert().Equal(2, s.reloads)
}

func TestExecReloadUnconfigured(t *testing.T) {
	reload := execReload("")
	require.NoError(t, reload(context.Background()))
}
