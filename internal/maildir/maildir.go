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

// Package maildir persists encrypted envelopes as uniquely named files in a
// per-vaultbox mail spool using the maildir new/cur/tmp layout.
package maildir

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/gliepins/vaultmail/internal/log"
)

func init() {
	viper.SetDefault("storage.maildir.foldername", "data/maildir")
}

const (
	dirTmp = "tmp"
	dirNew = "new"
	dirCur = "cur"

	dirMode  = 0700
	fileMode = 0600

	// infoSuffix marks a delivered message as new and unread. Mail clients
	// interpret an empty flag list after ":2," as unseen.
	infoSuffix = ":2,"
)

// Writer stores ciphertext files in a per-vaultbox maildir.
type Writer struct {
	fs       afero.Fs
	root     string
	hostname string
	random   io.Reader
	sequence atomic.Uint64
}

// NewWriter creates a new maildir writer using configuration from viper.
//
// `storage.maildir.foldername` is the root folder of all vaultbox spools.
func NewWriter() (*Writer, error) {
	folderName := viper.GetString("storage.maildir.foldername")

	if err := os.MkdirAll(folderName, dirMode); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(folderName)
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	return &Writer{
		fs:       afero.NewBasePathFs(afero.NewOsFs(), folderName),
		root:     root,
		hostname: hostname,
		random:   rand.Reader,
	}, nil
}

// Write stores the ciphertext as a new message file in the spool of a
// vaultbox and returns the absolute path of the file. The file is first
// written to the tmp folder and then renamed into new, so that consumers
// never observe partial messages. An existing file of the same name is never
// overwritten.
func (w *Writer) Write(ctx context.Context, vaultboxID string, ciphertext []byte) (string, error) {
	if err := w.ensureSpool(vaultboxID); err != nil {
		return "", err
	}

	name, err := w.generateName()
	if err != nil {
		return "", err
	}

	var (
		tmpName = path.Join(vaultboxID, dirTmp, name)
		newName = path.Join(vaultboxID, dirNew, name)
	)

	if err := w.writeFile(tmpName, ciphertext); err != nil {
		return "", err
	}

	if err := w.fs.Rename(tmpName, newName); err != nil {
		if removeErr := w.fs.Remove(tmpName); removeErr != nil {
			log.WarnContext(ctx).
				Err(removeErr).
				Str("filename", tmpName).
				Msg("could not remove stale tmp file")
		}

		return "", err
	}

	log.DebugContext(ctx).
		Str("filename", newName).
		Int("bytes", len(ciphertext)).
		Msg("message file written")

	return filepath.Join(w.root, filepath.FromSlash(newName)), nil
}

func (w *Writer) ensureSpool(vaultboxID string) error {
	for _, folder := range []string{dirTmp, dirNew, dirCur} {
		if err := w.fs.MkdirAll(path.Join(vaultboxID, folder), dirMode); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) writeFile(name string, content []byte) error {
	f, err := w.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return err
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		w.fs.Remove(name)

		return err
	}

	return f.Close()
}

// generateName composes a filename that is unique within the spool even for
// deliveries during the same millisecond. It combines the current time, a
// random discriminator and a process scoped sequence number.
func (w *Writer) generateName() (string, error) {
	var (
		now = time.Now()
		b   = make([]byte, 8)
	)

	if _, err := io.ReadFull(w.random, b); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d.M%06dR%sQ%d.%s%s",
		now.Unix(),
		now.Nanosecond()/1000,
		hex.EncodeToString(b),
		w.sequence.Add(1),
		w.hostname,
		infoSuffix)

	return name, nil
}
