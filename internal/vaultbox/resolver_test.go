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

package vaultbox

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"

	"github.com/gliepins/vaultmail/internal/crypto"
	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/models"
	"github.com/gliepins/vaultmail/internal/smime"
)

func TestResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

type ResolverTestSuite struct {
	suite.Suite

	ctx            context.Context
	conn           database.Conn
	vaultboxDao    database.VaultboxDao
	certificateDao database.CertificateDao
	issuer         *stubIssuer
	synchronizer   *countingSynchronizer
	resolver       *Resolver

	certPEM []byte
}

type stubIssuer struct {
	pem   []byte
	calls int
}

func (i *stubIssuer) Issue(context.Context, string) ([]byte, error) {
	i.calls++
	return i.pem, nil
}

type countingSynchronizer struct {
	calls int
}

func (s *countingSynchronizer) Sync(context.Context) error {
	s.calls++
	return nil
}

func (s *ResolverTestSuite) SetupSuite() {
	s.certPEM = generateCertificatePEM(s.T(), "stub@example.com")
}

func (s *ResolverTestSuite) SetupTest() {
	viper.Set("storage.database.filename", ":memory:")
	viper.Set("storage.database.journalmode", "memory")

	conn, err := database.OpenConnection()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.conn = conn
	s.vaultboxDao = database.NewVaultboxDao()
	s.certificateDao = database.NewCertificateDao()
	s.issuer = &stubIssuer{pem: s.certPEM}
	s.synchronizer = &countingSynchronizer{}

	s.resolver = NewResolver(
		conn,
		s.vaultboxDao,
		s.certificateDao,
		s.issuer,
		s.synchronizer,
		crypto.NewIDGenerator(),
	)
}

func (s *ResolverTestSuite) TearDownTest() {
	s.Require().NoError(s.conn.Close())
}

func (s *ResolverTestSuite) requireVaultbox(id, userID, domain, localPart string) {
	s.Require().NoError(s.vaultboxDao.Insert(s.ctx, s.conn, &models.VaultboxEntity{
		ID:          id,
		UserID:      userID,
		Domain:      domain,
		LocalPart:   localPart,
		DisplayName: localPart,
		Status:      models.StatusActive,
		Kind:        models.KindEncrypted,
		CreatedAt:   1000,
		UpdatedAt:   1000,
	}))
}

func (s *ResolverTestSuite) parseAddress(raw string) models.Address {
	addr, err := models.ParseNormalized(raw)
	s.Require().NoError(err)
	return addr
}

func (s *ResolverTestSuite) TestResolveExisting() {
	s.requireVaultbox("box-1", "user-1", "example.com", "someone")

	vaultbox, err := s.resolver.Resolve(s.ctx, s.parseAddress("someone@example.com"))
	s.Require().NoError(err)

	s.Assert().Equal("box-1", vaultbox.ID)
	s.Assert().Equal(0, s.issuer.calls)
	s.Assert().Equal(0, s.synchronizer.calls)
}

func (s *ResolverTestSuite) TestResolveUnknownDomain() {
	vaultbox, err := s.resolver.Resolve(s.ctx, s.parseAddress("someone@nowhere.example"))

	s.Assert().ErrorIs(err, ErrUnknownDomain)
	s.Assert().Nil(vaultbox)
	s.Assert().Equal(0, s.issuer.calls)

	vaultboxSlice, err := s.vaultboxDao.FindAll(s.ctx, s.conn)
	s.Require().NoError(err)
	s.Assert().Empty(vaultboxSlice)
}

func (s *ResolverTestSuite) TestResolveProvisionsNewAlias() {
	s.requireVaultbox("box-1", "user-1", "example.com", "someone")

	vaultbox, err := s.resolver.Resolve(s.ctx, s.parseAddress("Invoices+ACME@example.com"))
	s.Require().NoError(err)

	s.Assert().NotEqual("box-1", vaultbox.ID)
	s.Assert().Equal("user-1", vaultbox.UserID)
	s.Assert().Equal("example.com", vaultbox.Domain)
	s.Assert().Equal("invoices", vaultbox.LocalPart)
	s.Assert().Equal(models.StatusActive, vaultbox.Status)
	s.Assert().Equal(models.KindEncrypted, vaultbox.Kind)

	certSlice, err := s.certificateDao.FindByVaultbox(s.ctx, s.conn, vaultbox.ID)
	s.Require().NoError(err)
	s.Require().Len(certSlice, 1)
	s.Assert().Contains(certSlice[0].Fingerprint, "sha256:")

	s.Assert().Equal(1, s.issuer.calls)
	s.Assert().Equal(1, s.synchronizer.calls)
}

func (s *ResolverTestSuite) TestResolveProvisionIsStable() {
	s.requireVaultbox("box-1", "user-1", "example.com", "someone")

	first, err := s.resolver.Resolve(s.ctx, s.parseAddress("invoices@example.com"))
	s.Require().NoError(err)

	second, err := s.resolver.Resolve(s.ctx, s.parseAddress("invoices@example.com"))
	s.Require().NoError(err)

	s.Assert().Equal(first.ID, second.ID)
	s.Assert().Equal(1, s.issuer.calls)
}

// Losing the unique constraint race falls back to the winner's vaultbox
// without issuing a second certificate.
func (s *ResolverTestSuite) TestCreateLosesRace() {
	s.requireVaultbox("box-1", "user-1", "example.com", "invoices")

	vaultbox, err := s.resolver.create(s.ctx, "user-1", s.parseAddress("invoices@example.com"))
	s.Require().NoError(err)

	s.Assert().Equal("box-1", vaultbox.ID)
	s.Assert().Equal(0, s.issuer.calls)

	certSlice, err := s.certificateDao.FindByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Assert().Empty(certSlice)
}

func (s *ResolverTestSuite) TestBootstrap() {
	vaultbox, err := s.resolver.Bootstrap(s.ctx, "user-7", s.parseAddress("postmaster@example.org"))
	s.Require().NoError(err)

	s.Assert().Equal("user-7", vaultbox.UserID)
	s.Assert().Equal("example.org", vaultbox.Domain)
	s.Assert().Equal("postmaster", vaultbox.LocalPart)

	certSlice, err := s.certificateDao.FindByVaultbox(s.ctx, s.conn, vaultbox.ID)
	s.Require().NoError(err)
	s.Assert().Len(certSlice, 1)

	s.Assert().Equal(1, s.synchronizer.calls)
}

func (s *ResolverTestSuite) TestAddCertificate() {
	s.requireVaultbox("box-1", "user-1", "example.com", "someone")

	cert, err := s.resolver.AddCertificate(s.ctx, "box-1", generateCertificatePEM(s.T(), "someone@example.com"))
	s.Require().NoError(err)

	s.Assert().Equal("box-1", cert.VaultboxID)
	s.Assert().Contains(cert.Fingerprint, "sha256:")

	certSlice, err := s.certificateDao.FindByVaultbox(s.ctx, s.conn, "box-1")
	s.Require().NoError(err)
	s.Assert().Len(certSlice, 1)
}

func (s *ResolverTestSuite) TestAddCertificateMalformed() {
	s.requireVaultbox("box-1", "user-1", "example.com", "someone")

	_, err := s.resolver.AddCertificate(s.ctx, "box-1", []byte("not a certificate"))
	s.Assert().ErrorIs(err, smime.ErrMalformedCertificate)
}

func (s *ResolverTestSuite) TestAddCertificateUnknownVaultbox() {
	_, err := s.resolver.AddCertificate(s.ctx, "missing", generateCertificatePEM(s.T(), "someone@example.com"))
	s.Assert().True(database.IsErrNoRows(err))
}

func generateCertificatePEM(t *testing.T, address string) []byte {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	template := x509.Certificate{
		SerialNumber:   big.NewInt(1),
		Subject:        pkix.Name{CommonName: address},
		EmailAddresses: []string{address},
		NotBefore:      time.Now().Add(-time.Hour),
		NotAfter:       time.Now().Add(time.Hour),
		KeyUsage:       x509.KeyUsageKeyEncipherment,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
