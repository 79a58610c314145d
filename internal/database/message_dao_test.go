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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gliepins/vaultmail/internal/models"
)

func TestMessageDaoTestSuite(t *testing.T) {
	suite.Run(t, new(MessageDaoTestSuite))
}

type MessageDaoTestSuite struct {
	baseDatabaseTestSuite

	messageDao MessageDao
}

func (s *MessageDaoTestSuite) SetupSuite() {
	s.messageDao = NewMessageDao()
}

func (s *MessageDaoTestSuite) TestInsert() {
	s.requireVaultbox("box-1", "example.com", "someone")

	message := models.MessageEntity{
		ID:             "mail-1",
		VaultboxID:     "box-1",
		MessageID:      sql.NullString{String: "<id@sender.example>", Valid: true},
		SenderDomain:   sql.NullString{String: "sender.example", Valid: true},
		RecipientAlias: sql.NullString{String: "someone", Valid: true},
		Size:           2048,
		ReceivedAt:     1000,
		Storage: models.StorageDescriptor{
			Algorithm:   "smime-aes256",
			Bytes:       2048,
			MaildirPath: "/spool/box-1/new/x",
			Recipients:  []string{"sha256:abc"},
		},
	}

	s.Assert().NoError(s.messageDao.Insert(s.ctx, s.conn, &message))

	s.assertQuery(
		`
			select "id", "vaultbox_id", "size", "flags"
			from "messages" ;
		`,
		[]string{"mail-1", "box-1", "2048", "[]"})

	stored, err := s.messageDao.FindByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Assert().Equal(message.Storage, stored[0].Storage)
}

func (s *MessageDaoTestSuite) TestFindByVaultboxOrdering() {
	s.requireVaultbox("box-1", "example.com", "someone")

	s.requireExec(
		`
			insert into "messages"
				( "id", "vaultbox_id", "size", "received_at", "storage" )
			values
				( 'mail-1', 'box-1', 1, 1000, '{}' ) ,
				( 'mail-3', 'box-1', 3, 3000, '{}' ) ,
				( 'mail-2', 'box-1', 2, 2000, '{}' ) ;
		`)

	messages, err := s.messageDao.FindByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Require().Len(messages, 3)

	s.Assert().Equal("mail-3", messages[0].ID)
	s.Assert().Equal("mail-2", messages[1].ID)
	s.Assert().Equal("mail-1", messages[2].ID)
}

func (s *MessageDaoTestSuite) TestCountByVaultbox() {
	s.requireVaultbox("box-1", "example.com", "someone")
	s.requireVaultbox("box-2", "example.com", "other")

	s.requireExec(
		`
			insert into "messages"
				( "id", "vaultbox_id", "size", "received_at", "storage" )
			values
				( 'mail-1', 'box-1', 1, 1000, '{}' ) ,
				( 'mail-2', 'box-1', 2, 2000, '{}' ) ;
		`)

	count, err := s.messageDao.CountByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Assert().EqualValues(2, count)

	count, err = s.messageDao.CountByVaultbox(s.ctx, s.conn, "box-2")
	s.Require().NoError(err)
	s.Assert().EqualValues(0, count)
}
