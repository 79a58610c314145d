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

package models

import (
	"database/sql"
)

// VaultboxStatus is the lifecycle status of a vaultbox.
type VaultboxStatus string

const (
	// StatusActive is a vaultbox that accepts inbound mail.
	StatusActive VaultboxStatus = "active"
	// StatusDisabled is a vaultbox that is kept, but no longer accepts mail.
	StatusDisabled VaultboxStatus = "disabled"
)

// VaultboxKind distinguishes encrypted vaultboxes from plain ones.
type VaultboxKind string

const (
	// KindEncrypted is a vaultbox whose mail is encrypted at rest.
	KindEncrypted VaultboxKind = "encrypted"
	// KindSimple is a vaultbox whose mail is stored as received.
	KindSimple VaultboxKind = "simple"
)

// VaultboxEntity is the entity for the "vaultboxes" table. The pair of
// domain and local_part is unique, which makes dynamic provisioning
// converge on a single row under concurrent intake.
type VaultboxEntity struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Domain      string         `db:"domain"`
	LocalPart   string         `db:"local_part"`
	DisplayName string         `db:"display_name"`
	Status      VaultboxStatus `db:"status"`
	Kind        VaultboxKind   `db:"kind"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
}

// Address returns the mail address the vaultbox receives on.
func (v *VaultboxEntity) Address() string {
	return v.LocalPart + "@" + v.Domain
}

// CertificateEntity is the entity for the "certificates" table. Certificates
// are append-only from the pipeline's perspective.
type CertificateEntity struct {
	ID          string `db:"id"`
	VaultboxID  string `db:"vaultbox_id"`
	PEM         string `db:"pem"`
	Fingerprint string `db:"fingerprint"`
	CreatedAt   int64  `db:"created_at"`
}

// MessageEntity is the entity for the "messages" table. A row exists exactly
// once per successfully encrypted and durably stored message.
type MessageEntity struct {
	ID             string            `db:"id"`
	VaultboxID     string            `db:"vaultbox_id"`
	MessageID      sql.NullString    `db:"message_id"`
	SenderDomain   sql.NullString    `db:"sender_domain"`
	RecipientAlias sql.NullString    `db:"recipient_alias"`
	Size           int64             `db:"size"`
	ReceivedAt     int64             `db:"received_at"`
	Storage        StorageDescriptor `db:"storage"`
	Headers        sql.NullString    `db:"headers"`
	Flags          StringList        `db:"flags"`
	Tags           StringList        `db:"tags"`
}

// SmtpCredentialEntity is the entity for the "smtp_credentials" table. There
// is at most one row per vaultbox.
type SmtpCredentialEntity struct {
	VaultboxID   string        `db:"vaultbox_id"`
	Username     string        `db:"username"`
	Hash         string        `db:"hash"`
	Host         string        `db:"host"`
	Port         int           `db:"port"`
	Security     string        `db:"security"`
	MessagesSent int64         `db:"messages_sent"`
	CreatedAt    int64         `db:"created_at"`
	UpdatedAt    int64         `db:"updated_at"`
	LastUsedAt   sql.NullInt64 `db:"last_used_at"`
}
