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

// Package vaultbox resolves recipient addresses to vaultboxes and provisions
// new ones on first contact.
package vaultbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gliepins/vaultmail/internal/crypto"
	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/log"
	"github.com/gliepins/vaultmail/internal/models"
	"github.com/gliepins/vaultmail/internal/smime"
	"github.com/gliepins/vaultmail/internal/transport"
)

// ErrUnknownDomain is used when an address belongs to a domain without any
// existing vaultbox. Unknown domains are never provisioned dynamically.
var ErrUnknownDomain = errors.New("vaultbox: unknown domain")

// Resolver maps recipient addresses to vaultboxes. Addresses of a known
// domain that do not match an existing vaultbox are provisioned on the fly,
// including an initial certificate and a routing table update.
type Resolver struct {
	conn           database.Conn
	vaultboxDao    database.VaultboxDao
	certificateDao database.CertificateDao
	issuer         Issuer
	synchronizer   transport.Synchronizer
	idGenerator    crypto.IDGenerator
}

// NewResolver creates a new Resolver.
func NewResolver(
	conn database.Conn,
	vaultboxDao database.VaultboxDao,
	certificateDao database.CertificateDao,
	issuer Issuer,
	synchronizer transport.Synchronizer,
	idGenerator crypto.IDGenerator,
) *Resolver {
	return &Resolver{
		conn:           conn,
		vaultboxDao:    vaultboxDao,
		certificateDao: certificateDao,
		issuer:         issuer,
		synchronizer:   synchronizer,
		idGenerator:    idGenerator,
	}
}

// Resolve returns the vaultbox owning the address. The address must already
// be normalized. If no vaultbox matches, but the domain is known, a new one
// is provisioned and returned.
func (r *Resolver) Resolve(ctx context.Context, addr models.Address) (*models.VaultboxEntity, error) {
	vaultbox, err := r.vaultboxDao.FindByAddress(ctx, r.conn, addr.Domain(), addr.LocalPart())
	if err == nil {
		return vaultbox, nil
	}

	if !database.IsErrNoRows(err) {
		return nil, err
	}

	return r.provision(ctx, addr)
}

// Bootstrap creates the first vaultbox of a domain with an explicit owner.
// Dynamic provisioning borrows the owner from an existing vaultbox, so every
// domain has to be bootstrapped once before the resolver can serve it.
func (r *Resolver) Bootstrap(
	ctx context.Context,
	userID string,
	addr models.Address,
) (*models.VaultboxEntity, error) {
	return r.create(ctx, userID, addr)
}

// provision creates a vaultbox for an address of a known domain. The owner
// is borrowed from the oldest vaultbox of the same domain.
func (r *Resolver) provision(ctx context.Context, addr models.Address) (*models.VaultboxEntity, error) {
	owner, err := r.vaultboxDao.FindAnyByDomain(ctx, r.conn, addr.Domain())
	if err != nil {
		if database.IsErrNoRows(err) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, addr.Domain())
		}

		return nil, err
	}

	return r.create(ctx, owner.UserID, addr)
}

func (r *Resolver) create(ctx context.Context, userID string, addr models.Address) (*models.VaultboxEntity, error) {
	id, err := r.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	vaultbox := &models.VaultboxEntity{
		ID:          id,
		UserID:      userID,
		Domain:      addr.Domain(),
		LocalPart:   addr.LocalPart(),
		DisplayName: addr.LocalPart(),
		Status:      models.StatusActive,
		Kind:        models.KindEncrypted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.vaultboxDao.Insert(ctx, tx, vaultbox); err != nil {
		_ = tx.Rollback()

		// Another request won the race for the same address. The winner
		// already provisioned the vaultbox, so return that one.
		if database.IsErrUnique(err) {
			return r.vaultboxDao.FindByAddress(ctx, r.conn, addr.Domain(), addr.LocalPart())
		}

		return nil, err
	}

	if err := r.issueCertificate(ctx, tx, vaultbox); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.InfoContext(log.WithVaultbox(ctx, vaultbox.ID)).
		Str("address", vaultbox.Address()).
		Msg("vaultbox provisioned")

	// The routing table converges on the next publish if this one fails,
	// so a stale map does not undo an otherwise complete provisioning.
	if err := r.synchronizer.Sync(ctx); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not publish routing table")
	}

	return vaultbox, nil
}

// issueCertificate requests the initial certificate of a new vaultbox and
// records it in the same transaction. A vaultbox is never committed without
// at least one encryption recipient.
func (r *Resolver) issueCertificate(ctx context.Context, tx database.Tx, vaultbox *models.VaultboxEntity) error {
	pemBytes, err := r.issuer.Issue(ctx, vaultbox.Address())
	if err != nil {
		return fmt.Errorf("vaultbox: could not issue certificate: %w", err)
	}

	fingerprint, err := smime.Fingerprint(pemBytes)
	if err != nil {
		return err
	}

	certID, err := r.idGenerator.GenerateID()
	if err != nil {
		return err
	}

	return r.certificateDao.Insert(ctx, tx, &models.CertificateEntity{
		ID:          certID,
		VaultboxID:  vaultbox.ID,
		PEM:         string(pemBytes),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().Unix(),
	})
}

// AddCertificate records an additional certificate for an existing vaultbox.
// The PEM content is validated before it is stored, because a malformed
// certificate would poison every later encryption.
func (r *Resolver) AddCertificate(ctx context.Context, vaultboxID string, pemBytes []byte) (*models.CertificateEntity, error) {
	if _, err := smime.ParseCertificate(pemBytes); err != nil {
		return nil, err
	}

	if _, err := r.vaultboxDao.FindByID(ctx, r.conn, vaultboxID); err != nil {
		return nil, err
	}

	fingerprint, err := smime.Fingerprint(pemBytes)
	if err != nil {
		return nil, err
	}

	certID, err := r.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}

	cert := &models.CertificateEntity{
		ID:          certID,
		VaultboxID:  vaultboxID,
		PEM:         string(pemBytes),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().Unix(),
	}

	if err := r.certificateDao.Insert(ctx, r.conn, cert); err != nil {
		return nil, err
	}

	log.InfoContext(log.WithVaultbox(ctx, vaultboxID)).
		Str("fingerprint", fingerprint).
		Msg("certificate added")

	return cert, nil
}
