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

// Package transport keeps the routing table of the mail-transfer agent
// consistent with the set of known vaultboxes. The synchronizer is the only
// writer of the map file.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/log"
	"github.com/gliepins/vaultmail/internal/models"
)

func init() {
	viper.SetDefault("transport.mapfile", "data/transport.map")
	viper.SetDefault("transport.name", "vaultmail")
	viper.SetDefault("transport.reloadcommand", "")
}

// Synchronizer publishes the routing table of all vaultboxes.
type Synchronizer interface {
	// Sync rebuilds the complete map file and signals the mail-transfer
	// agent to reload its routing cache. The rebuild is idempotent and can
	// be re-run safely after an interrupted publish.
	Sync(ctx context.Context) error
}

// NewSynchronizer creates a new Synchronizer using configuration from viper.
//
// `transport.mapfile` is the filename of the routing table.
// `transport.name` is the name of the pipe transport entries point to.
// `transport.reloadcommand` is run after every publish, eg. "postmap <mapfile>".
func NewSynchronizer(conn database.Conn, vaultboxDao database.VaultboxDao) Synchronizer {
	return &mapFileSynchronizer{
		conn:          conn,
		vaultboxDao:   vaultboxDao,
		fs:            afero.NewOsFs(),
		mapFilename:   viper.GetString("transport.mapfile"),
		transportName: viper.GetString("transport.name"),
		reload:        execReload(viper.GetString("transport.reloadcommand")),
	}
}

type reloadFunc func(ctx context.Context) error

type mapFileSynchronizer struct {
	conn        database.Conn
	vaultboxDao database.VaultboxDao

	fs            afero.Fs
	mapFilename   string
	transportName string
	reload        reloadFunc

	mutex sync.Mutex
}

func (s *mapFileSynchronizer) Sync(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	vaultboxes, err := s.vaultboxDao.FindAll(ctx, s.conn)
	if err != nil {
		return fmt.Errorf("transport: could not list vaultboxes: %w", err)
	}

	content := s.render(vaultboxes)

	if err := s.publish(content); err != nil {
		return fmt.Errorf("transport: could not publish map file: %w", err)
	}

	log.InfoContext(ctx).
		Str("mapfile", s.mapFilename).
		Int("entries", len(vaultboxes)).
		Msg("transport map published")

	return s.reload(ctx)
}

// render builds the map file content. Every entry maps an address to the
// pipe transport keyed by the vaultbox id. Domains are written as punycode,
// because that is what the mail-transfer agent routes on.
func (s *mapFileSynchronizer) render(vaultboxes []models.VaultboxEntity) []byte {
	var buffer bytes.Buffer

	for _, vaultbox := range vaultboxes {
		domain, err := models.DomainToASCII(vaultbox.Domain)
		if err != nil {
			domain = vaultbox.Domain
		}

		fmt.Fprintf(&buffer, "%s@%s\t%s:%s\n",
			vaultbox.LocalPart, domain, s.transportName, vaultbox.ID)
	}

	return buffer.Bytes()
}

// publish writes the new content next to the map file and swaps it in place
// with a rename, so that the mail-transfer agent never reads a half written
// table.
func (s *mapFileSynchronizer) publish(content []byte) error {
	tmpFilename := s.mapFilename + ".tmp"

	if err := afero.WriteFile(s.fs, tmpFilename, content, 0644); err != nil {
		return err
	}

	return s.fs.Rename(tmpFilename, s.mapFilename)
}

func execReload(command string) reloadFunc {
	return func(ctx context.Context) error {
		if command == "" {
			log.WarnContext(ctx).
				Msg("no transport reload command configured")

			return nil
		}

		args := strings.Fields(command)
		output, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("transport: reload command failed: %w (%s)",
				err, bytes.TrimSpace(output))
		}

		return nil
	}
}
