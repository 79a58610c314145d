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

	"github.com/gliepins/vaultmail/internal/models"
)

// SmtpCredentialDao is a data access object for all smtp-credential related queries.
type SmtpCredentialDao interface {
	// Upsert inserts new credentials for a vaultbox. When there already is an
	// entry, the row is replaced instead.
	Upsert(context.Context, Queryer, *models.SmtpCredentialEntity) error
	// FindByVaultbox returns the credentials associated with a vaultbox.
	FindByVaultbox(context.Context, Queryer, string) (*models.SmtpCredentialEntity, error)
	// FindByUsername returns the credentials matching a username.
	FindByUsername(context.Context, Queryer, string) (*models.SmtpCredentialEntity, error)
	// ExistsUsername checks if a username is already taken.
	ExistsUsername(context.Context, Queryer, string) (bool, error)
	// RecordUsage updates the last-used timestamp and usage counter after a
	// successful validation.
	RecordUsage(ctx context.Context, q Queryer, vaultboxID string, usedAt int64) error
}

// smtpCredentialDao is the sqlite implementation of SmtpCredentialDao.
type smtpCredentialDao struct{}

// NewSmtpCredentialDao creates a new SmtpCredentialDao.
func NewSmtpCredentialDao() SmtpCredentialDao {
	return smtpCredentialDao{}
}

func (smtpCredentialDao) Upsert(
	ctx context.Context,
	q Queryer,
	creds *models.SmtpCredentialEntity,
) error {
	const query = `
		insert or replace into "smtp_credentials" (
			"vaultbox_id" ,
			"username" ,
			"hash" ,
			"host" ,
			"port" ,
			"security" ,
			"messages_sent" ,
			"created_at" ,
			"updated_at" ,
			"last_used_at"
		) values (
			:vaultbox_id ,
			:username ,
			:hash ,
			:host ,
			:port ,
			:security ,
			:messages_sent ,
			:created_at ,
			:updated_at ,
			:last_used_at
		) ;
	`

	result, err := execNamed(ctx, q, query, creds)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (smtpCredentialDao) FindByVaultbox(
	ctx context.Context,
	q Queryer,
	vaultboxID string,
) (*models.SmtpCredentialEntity, error) {
	const query = `
		select *
		from "smtp_credentials"
		where "vaultbox_id" = $1 ;
	`

	var creds models.SmtpCredentialEntity

	if err := selectOne(ctx, q, &creds, query, vaultboxID); err != nil {
		return nil, err
	}

	return &creds, nil
}

func (smtpCredentialDao) FindByUsername(
	ctx context.Context,
	q Queryer,
	username string,
) (*models.SmtpCredentialEntity, error) {
	const query = `
		select *
		from "smtp_credentials"
		where "username" = $1 ;
	`

	var creds models.SmtpCredentialEntity

	if err := selectOne(ctx, q, &creds, query, username); err != nil {
		return nil, err
	}

	return &creds, nil
}

func (smtpCredentialDao) ExistsUsername(
	ctx context.Context,
	q Queryer,
	username string,
) (bool, error) {
	const query = `
		select exists (
			select 1
			from "smtp_credentials"
			where "username" = $1
		) ;
	`

	var exists bool

	if err := selectOne(ctx, q, &exists, query, username); err != nil {
		return false, err
	}

	return exists, nil
}

func (smtpCredentialDao) RecordUsage(
	ctx context.Context,
	q Queryer,
	vaultboxID string,
	usedAt int64,
) error {
	const query = `
		update "smtp_credentials"
		set "last_used_at" = $1 ,
		    "messages_sent" = "messages_sent" + 1
		where "vaultbox_id" = $2 ;
	`

	result, err := execPositional(ctx, q, query, usedAt, vaultboxID)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}
