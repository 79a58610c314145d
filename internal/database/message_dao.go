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

// MessageDao is a data access object for all stored-message related queries.
// The pipeline only ever inserts rows. Flags and tags are mutated by
// collaborators outside of this repository.
type MessageDao interface {
	// Insert inserts a new message row. This must only be called after the
	// ciphertext reached durable storage.
	Insert(context.Context, Queryer, *models.MessageEntity) error
	// FindByVaultbox returns all message rows of a vaultbox, newest first.
	FindByVaultbox(context.Context, Queryer, string) ([]models.MessageEntity, error)
	// CountByVaultbox returns the number of stored messages of a vaultbox.
	CountByVaultbox(context.Context, Queryer, string) (int64, error)
}

// messageDao is the sqlite implementation of MessageDao.
type messageDao struct{}

// NewMessageDao creates a new MessageDao.
func NewMessageDao() MessageDao {
	return messageDao{}
}

func (messageDao) Insert(ctx context.Context, q Queryer, message *models.MessageEntity) error {
	const query = `
		insert into "messages" (
			"id" ,
			"vaultbox_id" ,
			"message_id" ,
			"sender_domain" ,
			"recipient_alias" ,
			"size" ,
			"received_at" ,
			"storage" ,
			"headers" ,
			"flags" ,
			"tags"
		) values (
			:id ,
			:vaultbox_id ,
			:message_id ,
			:sender_domain ,
			:recipient_alias ,
			:size ,
			:received_at ,
			:storage ,
			:headers ,
			:flags ,
			:tags
		) ;
	`

	result, err := execNamed(ctx, q, query, message)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (messageDao) FindByVaultbox(
	ctx context.Context,
	q Queryer,
	vaultboxID string,
) ([]models.MessageEntity, error) {
	const query = `
		select *
		from "messages"
		where "vaultbox_id" = $1
		order by "received_at" desc, "id" desc ;
	`

	var messageSlice []models.MessageEntity

	if err := selectSlice(ctx, q, &messageSlice, query, vaultboxID); err != nil {
		return nil, err
	}

	return messageSlice, nil
}

func (messageDao) CountByVaultbox(
	ctx context.Context,
	q Queryer,
	vaultboxID string,
) (int64, error) {
	const query = `
		select count(*)
		from "messages"
		where "vaultbox_id" = $1 ;
	`

	var count int64

	if err := selectOne(ctx, q, &count, query, vaultboxID); err != nil {
		return 0, err
	}

	return count, nil
}
