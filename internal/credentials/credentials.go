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

// Package credentials manages the one-to-one SMTP relay credentials of
// vaultboxes. Passwords are handed out exactly once. Only the argon2id hash
// is ever stored.
package credentials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gliepins/vaultmail/internal/crypto"
	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/log"
	"github.com/gliepins/vaultmail/internal/models"
)

func init() {
	viper.SetDefault("credentials.passwordlength", 24)
	viper.SetDefault("credentials.host", "localhost")
	viper.SetDefault("credentials.port", 587)
	viper.SetDefault("credentials.security", "starttls")
}

// Issued is the result of issuing credentials. It is the only place the
// plaintext password ever appears.
type Issued struct {
	Username string
	Password string
	Host     string
	Port     int
	Security string
}

// Service issues and validates SMTP relay credentials.
type Service struct {
	conn              database.Conn
	vaultboxDao       database.VaultboxDao
	smtpCredentialDao database.SmtpCredentialDao
	passwordGenerator crypto.PasswordGenerator
}

// NewService creates a new credential Service using configuration from viper.
//
// `credentials.passwordlength` is the length of generated passwords.
// `credentials.host`, `credentials.port` and `credentials.security` describe
// the relay endpoint advertised together with issued credentials.
func NewService(
	conn database.Conn,
	vaultboxDao database.VaultboxDao,
	smtpCredentialDao database.SmtpCredentialDao,
	passwordGenerator crypto.PasswordGenerator,
) *Service {
	return &Service{
		conn:              conn,
		vaultboxDao:       vaultboxDao,
		smtpCredentialDao: smtpCredentialDao,
		passwordGenerator: passwordGenerator,
	}
}

// Issue creates credentials for a vaultbox and returns the plaintext password
// exactly once. Issuing again replaces the previous credentials, which
// invalidates the old password.
func (s *Service) Issue(ctx context.Context, vaultboxID string) (*Issued, error) {
	vaultbox, err := s.vaultboxDao.FindByID(ctx, s.conn, vaultboxID)
	if err != nil {
		return nil, err
	}

	username, err := s.chooseUsername(ctx, vaultbox)
	if err != nil {
		return nil, err
	}

	password, err := s.passwordGenerator.GeneratePassword(
		viper.GetInt("credentials.passwordlength"))
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	creds := &models.SmtpCredentialEntity{
		VaultboxID: vaultbox.ID,
		Username:   username,
		Host:       viper.GetString("credentials.host"),
		Port:       viper.GetInt("credentials.port"),
		Security:   viper.GetString("credentials.security"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := crypto.Hash(creds, []byte(password)); err != nil {
		return nil, err
	}

	if err := s.smtpCredentialDao.Upsert(ctx, s.conn, creds); err != nil {
		return nil, err
	}

	log.InfoContext(log.WithVaultbox(ctx, vaultbox.ID)).
		Str("username", username).
		Msg("smtp credentials issued")

	return &Issued{
		Username: creds.Username,
		Password: password,
		Host:     creds.Host,
		Port:     creds.Port,
		Security: creds.Security,
	}, nil
}

// Verify checks a username and password pair. On success the usage counters
// of the credentials are updated.
func (s *Service) Verify(ctx context.Context, username string, password []byte) (*models.SmtpCredentialEntity, error) {
	creds, err := s.smtpCredentialDao.FindByUsername(ctx, s.conn, username)
	if err != nil {
		if database.IsErrNoRows(err) {
			return nil, crypto.ErrPasswordMismatch
		}

		return nil, err
	}

	if err := crypto.Verify(creds, password); err != nil {
		return nil, err
	}

	if err := s.smtpCredentialDao.RecordUsage(ctx, s.conn, creds.VaultboxID, time.Now().Unix()); err != nil {
		return nil, err
	}

	return creds, nil
}

// chooseUsername derives a deterministic username from the vaultbox address.
// If the username is taken by another vaultbox, a numeric suffix is appended
// until a free one is found. Reissuing for the same vaultbox keeps its
// username stable, because the existing row is replaced.
func (s *Service) chooseUsername(ctx context.Context, vaultbox *models.VaultboxEntity) (string, error) {
	base := slug(vaultbox.Domain) + "-" + slug(vaultbox.LocalPart)

	if taken, err := s.takenByOther(ctx, vaultbox.ID, base); err != nil {
		return "", err
	} else if !taken {
		return base, nil
	}

	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)

		if taken, err := s.takenByOther(ctx, vaultbox.ID, candidate); err != nil {
			return "", err
		} else if !taken {
			return candidate, nil
		}
	}
}

func (s *Service) takenByOther(ctx context.Context, vaultboxID, username string) (bool, error) {
	creds, err := s.smtpCredentialDao.FindByUsername(ctx, s.conn, username)
	if err != nil {
		if database.IsErrNoRows(err) {
			return false, nil
		}

		return false, err
	}

	return creds.VaultboxID != vaultboxID, nil
}

// slug reduces a string to lowercase ascii letters, digits and single
// dashes, which keeps usernames safe for SMTP AUTH and shells alike.
func slug(raw string) string {
	var builder strings.Builder
	dash := false

	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			builder.WriteRune(r)
			dash = false

		case !dash && builder.Len() > 0:
			builder.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(builder.String(), "-")
}
