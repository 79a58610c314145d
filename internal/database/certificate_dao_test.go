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
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gliepins/vaultmail/internal/models"
)

func TestCertificateDaoTestSuite(t *testing.T) {
	suite.Run(t, new(CertificateDaoTestSuite))
}

type CertificateDaoTestSuite struct {
	baseDatabaseTestSuite

	certificateDao CertificateDao
}

func (s *CertificateDaoTestSuite) SetupSuite() {
	s.certificateDao = NewCertificateDao()
}

func (s *CertificateDaoTestSuite) TestInsert() {
	s.requireVaultbox("box-1", "example.com", "someone")

	cert := models.CertificateEntity{
		ID:          "cert-1",
		VaultboxID:  "box-1",
		PEM:         "-----BEGIN CERTIFICATE-----",
		Fingerprint: "sha256:abc",
		CreatedAt:   1000,
	}

	s.Assert().NoError(s.certificateDao.Insert(s.ctx, s.conn, &cert))

	s.assertQuery(
		`
			select "id", "vaultbox_id", "fingerprint"
			from "certificates" ;
		`,
		[]string{"cert-1", "box-1", "sha256:abc"})
}

func (s *CertificateDaoTestSuite) TestInsertUnknownVaultbox() {
	cert := models.CertificateEntity{
		ID:         "cert-1",
		VaultboxID: "missing",
	}

	s.Assert().Error(s.certificateDao.Insert(s.ctx, s.conn, &cert))
}

// The read path orders certificates oldest first. The encryption step relies
// on this ordering when it treats the first certificate as primary.
func (s *CertificateDaoTestSuite) TestFindByVaultboxOrdering() {
	s.requireVaultbox("box-1", "example.com", "someone")
	s.requireVaultbox("box-2", "example.com", "other")

	s.requireExec(
		`
			insert into "certificates"
				( "id", "vaultbox_id", "pem", "fingerprint", "created_at" )
			values
				( 'cert-3', 'box-1', 'pem3', 'sha256:c', 3000 ) ,
				( 'cert-1', 'box-1', 'pem1', 'sha256:a', 1000 ) ,
				( 'cert-2', 'box-1', 'pem2', 'sha256:b', 2000 ) ,
				( 'cert-9', 'box-2', 'pem9', 'sha256:z', 500 ) ;
		`)

	certs, err := s.certificateDao.FindByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Require().Len(certs, 3)

	s.Assert().Equal("cert-1", certs[0].ID)
	s.Assert().Equal("cert-2", certs[1].ID)
	s.Assert().Equal("cert-3", certs[2].ID)
}

func (s *CertificateDaoTestSuite) TestFindByVaultboxEmpty() {
	s.requireVaultbox("box-1", "example.com", "someone")

	certs, err := s.certificateDao.FindByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Assert().Empty(certs)
}
