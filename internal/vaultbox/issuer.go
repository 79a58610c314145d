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
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/gliepins/vaultmail/internal/log"
)

func init() {
	viper.SetDefault("certissuer.bits", 2048)
	viper.SetDefault("certissuer.days", 3650)
	viper.SetDefault("certissuer.keyfolder", "data/keys")
}

// Issuer is the certificate issuance boundary. It returns a PEM encoded
// certificate bound to the address of a vaultbox.
type Issuer interface {
	Issue(ctx context.Context, address string) ([]byte, error)
}

// NewSelfSignIssuer creates an Issuer that generates a fresh RSA keypair and
// self-signs a certificate per vaultbox. The private key is written to a
// restricted file for later pickup by the vaultbox owner.
//
// `certissuer.bits` is the RSA key size.
// `certissuer.days` is the certificate validity in days.
// `certissuer.keyfolder` is the folder for generated private keys.
func NewSelfSignIssuer() (Issuer, error) {
	folderName := viper.GetString("certissuer.keyfolder")

	if err := os.MkdirAll(folderName, 0700); err != nil {
		return nil, err
	}

	return &selfSignIssuer{
		fs:     afero.NewBasePathFs(afero.NewOsFs(), folderName),
		random: rand.Reader,
		bits:   viper.GetInt("certissuer.bits"),
		days:   viper.GetInt("certissuer.days"),
	}, nil
}

type selfSignIssuer struct {
	fs     afero.Fs
	random io.Reader
	bits   int
	days   int
}

func (i *selfSignIssuer) Issue(ctx context.Context, address string) ([]byte, error) {
	key, err := rsa.GenerateKey(i.random, i.bits)
	if err != nil {
		return nil, fmt.Errorf("vaultbox: could not generate key: %w", err)
	}

	serial, err := rand.Int(i.random, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:   serial,
		Subject:        pkix.Name{CommonName: address},
		EmailAddresses: []string{address},
		NotBefore:      now.Add(-time.Hour),
		NotAfter:       now.AddDate(0, 0, i.days),
		KeyUsage:       x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(i.random, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("vaultbox: could not self-sign certificate: %w", err)
	}

	if err := i.writeKey(address, key); err != nil {
		return nil, err
	}

	log.InfoContext(ctx).
		Str("address", address).
		Time("notAfter", template.NotAfter).
		Msg("certificate issued")

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

func (i *selfSignIssuer) writeKey(address string, key *rsa.PrivateKey) error {
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
	return afero.WriteFile(i.fs, address+".key", keyPEM, 0600)
}
