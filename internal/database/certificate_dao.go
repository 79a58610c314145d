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

// CertificateDao is a data access object for all certificate related queries.
// Certificates are append-only. The pipeline never updates or deletes them.
type CertificateDao interface {
	// Insert inserts a new certificate.
	Insert(context.Context, Queryer, *models.CertificateEntity) error
	// FindByVaultbox returns all certificates of a vaultbox, oldest first.
	// The earliest issued certificate is treated as primary, but every
	// certificate is used as an encryption recipient.
	FindByVaultbox(context.Context, Queryer, string) ([]models.CertificateEntity, error)
}

// certificateDao is the sqlite implementation of CertificateDao.
type certificateDao struct{}

// NewCertificateDao creates a new CertificateDao.
func NewCertificateDao() CertificateDao {
	return certificateDao{}
}

func (certificateDao) Insert(ctx context.Context, q Queryer, cert *models.CertificateEntity) error {
	const query = `
		insert into "certificates" (
			"id" ,
			"vaultbox_id" ,
			"pem" ,
			"fingerprint" ,
			"created_at"
		) values (
			:id ,
			:vaultbox_id ,
			:pem ,
			:fingerprint ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, cert)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (certificateDao) FindByVaultbox(
	ctx context.Context,
	q Queryer,
	vaultboxID string,
) ([]models.CertificateEntity, error) {
	const query = `
		select *
		from "certificates"
		where "vaultbox_id" = $1
		order by "created_at" asc, "id" asc ;
	`

	var certSlice []models.CertificateEntity

	if err := selectSlice(ctx, q, &certSlice, query, vaultboxID); err != nil {
		return nil, err
	}

	return certSlice, nil
}
