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

// Package smime wraps plaintext mail into CMS EnvelopedData addressed to one
// or more recipient certificates. Encryption happens in-process. No key
// material is ever staged on disk.
package smime

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Algorithm is the tag recorded in storage descriptors for envelopes
// produced by this package.
const Algorithm = "smime-aes256"

var (
	// ErrNoRecipients is returned when encryption is attempted without any
	// recipient certificate. Callers must treat this as the distinct
	// "no recipient key" condition, not as a generic failure.
	ErrNoRecipients = errors.New("smime: no recipient certificates")

	// ErrMalformedCertificate is returned when a certificate cannot be
	// decoded or parsed.
	ErrMalformedCertificate = errors.New("smime: malformed certificate")

	// ErrPlaintextTooLarge is returned when the plaintext exceeds the safe
	// processing size.
	ErrPlaintextTooLarge = errors.New("smime: plaintext exceeds safe processing size")
)

const pemTypeCertificate = "CERTIFICATE"

// ParseCertificate parses a single PEM encoded certificate.
func ParseCertificate(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != pemTypeCertificate {
		return nil, fmt.Errorf("%w: no certificate block", ErrMalformedCertificate)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}

	return cert, nil
}

// ParseCertificates parses a list of PEM encoded certificates preserving
// their order.
func ParseCertificates(pemSlice []string) ([]*x509.Certificate, error) {
	certSlice := make([]*x509.Certificate, 0, len(pemSlice))

	for _, pemString := range pemSlice {
		cert, err := ParseCertificate([]byte(pemString))
		if err != nil {
			return nil, err
		}

		certSlice = append(certSlice, cert)
	}

	return certSlice, nil
}
