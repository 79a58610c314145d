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

// Package intake accepts raw inbound mail and runs it through the delivery
// pipeline. Every message is resolved to a vaultbox, encrypted for all of its
// certificates, written to the mail spool and recorded in the metadata store.
package intake

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"time"

	"github.com/gliepins/vaultmail/internal/crypto"
	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/log"
	"github.com/gliepins/vaultmail/internal/maildir"
	"github.com/gliepins/vaultmail/internal/models"
	"github.com/gliepins/vaultmail/internal/smime"
	"github.com/gliepins/vaultmail/internal/vaultbox"
)

// Delivery is one raw inbound message together with its destination. Either
// the vaultbox id or the recipient address must be set.
type Delivery struct {
	VaultboxID string
	Recipient  string
	Raw        []byte
}

// Result describes a completed delivery.
type Result struct {
	VaultboxID string
	Path       string
	Bytes      int64
}

// Pipeline runs deliveries through resolution, encryption, spool storage and
// metadata recording. The steps of one delivery are strictly sequential.
// Concurrent deliveries are independent.
type Pipeline struct {
	conn           database.Conn
	vaultboxDao    database.VaultboxDao
	certificateDao database.CertificateDao
	messageDao     database.MessageDao
	resolver       *vaultbox.Resolver
	encryptor      smime.Encryptor
	writer         *maildir.Writer
	idGenerator    crypto.IDGenerator
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	conn database.Conn,
	vaultboxDao database.VaultboxDao,
	certificateDao database.CertificateDao,
	messageDao database.MessageDao,
	resolver *vaultbox.Resolver,
	encryptor smime.Encryptor,
	writer *maildir.Writer,
	idGenerator crypto.IDGenerator,
) *Pipeline {
	return &Pipeline{
		conn:           conn,
		vaultboxDao:    vaultboxDao,
		certificateDao: certificateDao,
		messageDao:     messageDao,
		resolver:       resolver,
		encryptor:      encryptor,
		writer:         writer,
		idGenerator:    idGenerator,
	}
}

// Deliver runs a single delivery to completion. Failures are returned as
// categorized *Failure errors. No file is written and no row is recorded
// before encryption succeeded, and no row is ever recorded without its file.
func (p *Pipeline) Deliver(ctx context.Context, delivery Delivery) (*Result, error) {
	if len(delivery.Raw) == 0 {
		return nil, fail(CodeInvalidRequest, errors.New("empty message payload"))
	}

	box, err := p.resolve(ctx, delivery)
	if err != nil {
		return nil, err
	}

	ctx = log.WithVaultbox(ctx, box.ID)

	if box.Status != models.StatusActive {
		return nil, fail(CodeInvalidRequest, errors.New("vaultbox does not accept mail"))
	}

	ciphertext, recipients, err := p.encrypt(ctx, box, delivery.Raw)
	if err != nil {
		return nil, err
	}

	path, err := p.writer.Write(ctx, box.ID, ciphertext)
	if err != nil {
		return nil, fail(CodeStorageFailed, err)
	}

	result := &Result{
		VaultboxID: box.ID,
		Path:       path,
		Bytes:      int64(len(ciphertext)),
	}

	if err := p.record(ctx, box, delivery.Raw, result, recipients); err != nil {
		// The ciphertext file is durable at this point and is kept for an
		// operational sweep. Only the row is missing.
		log.ErrorContext(ctx).
			Err(err).
			Str("path", path).
			Msg("message stored without metadata row")

		return nil, fail(CodeMetadataFailed, err)
	}

	log.InfoContext(ctx).
		Str("path", path).
		Int64("bytes", result.Bytes).
		Msg("message delivered")

	return result, nil
}

// resolve determines the destination vaultbox, either directly by id or by
// resolving a recipient address, which may provision a new vaultbox.
func (p *Pipeline) resolve(ctx context.Context, delivery Delivery) (*models.VaultboxEntity, error) {
	if delivery.VaultboxID != "" {
		box, err := p.vaultboxDao.FindByID(ctx, p.conn, delivery.VaultboxID)
		if err != nil {
			if database.IsErrNoRows(err) {
				return nil, fail(CodeInvalidRequest, errors.New("unknown vaultbox id"))
			}

			return nil, fail(CodeStorageFailed, err)
		}

		return box, nil
	}

	if delivery.Recipient == "" {
		return nil, fail(CodeInvalidRequest, errors.New("missing destination"))
	}

	addr, err := models.ParseNormalized(delivery.Recipient)
	if err != nil {
		return nil, fail(CodeInvalidRequest, err)
	}

	box, err := p.resolver.Resolve(ctx, addr)
	if err != nil {
		if errors.Is(err, vaultbox.ErrUnknownDomain) {
			return nil, fail(CodeUnknownDomain, err)
		}

		return nil, fail(CodeStorageFailed, err)
	}

	return box, nil
}

// encrypt wraps the raw message for all certificates of the vaultbox and
// returns the envelope together with the recipient fingerprints. A vaultbox
// of the simple kind stores mail as received.
func (p *Pipeline) encrypt(
	ctx context.Context,
	box *models.VaultboxEntity,
	raw []byte,
) ([]byte, []string, error) {
	if box.Kind == models.KindSimple {
		return raw, nil, nil
	}

	certSlice, err := p.certificateDao.FindByVaultbox(ctx, p.conn, box.ID)
	if err != nil {
		return nil, nil, fail(CodeStorageFailed, err)
	}

	if len(certSlice) == 0 {
		return nil, nil, fail(CodeNoCertificates, nil)
	}

	var (
		pemSlice     = make([]string, len(certSlice))
		fingerprints = make([]string, len(certSlice))
	)

	for i, cert := range certSlice {
		pemSlice[i] = cert.PEM
		fingerprints[i] = cert.Fingerprint
	}

	recipients, err := smime.ParseCertificates(pemSlice)
	if err != nil {
		return nil, nil, fail(CodeEncryptionFailed, err)
	}

	ciphertext, err := p.encryptor.Encrypt(ctx, raw, recipients)
	if err != nil {
		return nil, nil, fail(CodeEncryptionFailed, err)
	}

	return ciphertext, fingerprints, nil
}

// record inserts the metadata row of a stored message.
func (p *Pipeline) record(
	ctx context.Context,
	box *models.VaultboxEntity,
	raw []byte,
	result *Result,
	recipients []string,
) error {
	id, err := p.idGenerator.GenerateID()
	if err != nil {
		return err
	}

	algorithm := smime.Algorithm
	if box.Kind == models.KindSimple {
		algorithm = "plain"
	}

	message := &models.MessageEntity{
		ID:             id,
		VaultboxID:     box.ID,
		RecipientAlias: sql.NullString{String: box.LocalPart, Valid: true},
		Size:           result.Bytes,
		ReceivedAt:     time.Now().Unix(),
		Storage: models.StorageDescriptor{
			Algorithm:   algorithm,
			Bytes:       result.Bytes,
			MaildirPath: result.Path,
			Recipients:  recipients,
		},
	}

	message.MessageID, message.SenderDomain = parseHeaders(raw)

	return p.messageDao.Insert(ctx, p.conn, message)
}

// parseHeaders extracts the message id and the sender domain from the raw
// message. Parsing is best effort. A message that cannot be parsed is still
// delivered, just with less metadata.
func parseHeaders(raw []byte) (messageID, senderDomain sql.NullString) {
	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return
	}

	if id := parsed.Header.Get("Message-Id"); id != "" {
		messageID = sql.NullString{String: id, Valid: true}
	}

	if from, err := mail.ParseAddress(parsed.Header.Get("From")); err == nil {
		if addr, err := models.Parse(from.Address); err == nil {
			senderDomain = sql.NullString{String: addr.Domain(), Valid: true}
		}
	}

	return
}
