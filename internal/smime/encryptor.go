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

package smime

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/smallstep/pkcs7"
	"github.com/spf13/viper"

	"github.com/gliepins/vaultmail/internal/log"
)

func init() {
	viper.SetDefault("smime.maxplaintext", 32<<20)
}

// Encryptor wraps a plaintext payload into a single encrypted envelope
// addressed to all recipient certificates at once. Any one matching private
// key can decrypt the envelope independently.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte, recipients []*x509.Certificate) ([]byte, error)
}

// NewEncryptor creates a new in-process Encryptor producing S/MIME framed
// CMS envelopes with AES-256 content encryption.
//
// `smime.maxplaintext` bounds the plaintext size in bytes.
func NewEncryptor() Encryptor {
	// The content encryption algorithm is a package level setting of the
	// pkcs7 library. Setting it here keeps the choice next to the Algorithm
	// tag it must stay in sync with.
	pkcs7.ContentEncryptionAlgorithm = pkcs7.EncryptionAlgorithmAES256CBC

	return &cmsEncryptor{
		maxPlaintext: viper.GetInt64("smime.maxplaintext"),
	}
}

type cmsEncryptor struct {
	maxPlaintext int64
}

func (e *cmsEncryptor) Encrypt(
	ctx context.Context,
	plaintext []byte,
	recipients []*x509.Certificate,
) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	if int64(len(plaintext)) > e.maxPlaintext {
		return nil, ErrPlaintextTooLarge
	}

	log.DebugContext(ctx).
		Int("plaintext", len(plaintext)).
		Int("recipients", len(recipients)).
		Msg("encrypting message")

	der, err := pkcs7.Encrypt(plaintext, recipients)
	if err != nil {
		// The error of the primitive never contains key material, only
		// structural information. It is safe to wrap and log upstream.
		return nil, fmt.Errorf("smime: could not encrypt: %w", err)
	}

	return wrapEnvelope(der), nil
}

// mimeHeader is the S/MIME framing in front of the base64 encoded envelope.
// Standard mail clients recognize the enveloped-data smime-type.
const mimeHeader = "MIME-Version: 1.0\r\n" +
	"Content-Disposition: attachment; filename=\"smime.p7m\"\r\n" +
	"Content-Type: application/pkcs7-mime; smime-type=enveloped-data; name=\"smime.p7m\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n"

const base64LineLength = 64

// wrapEnvelope frames the DER envelope as an S/MIME message with the base64
// body folded to 64 characters per line.
func wrapEnvelope(der []byte) []byte {
	var (
		encoded = base64.StdEncoding.EncodeToString(der)
		buffer  bytes.Buffer
	)

	buffer.Grow(len(mimeHeader) + len(encoded) + len(encoded)/base64LineLength*2 + 2)
	buffer.WriteString(mimeHeader)

	for len(encoded) > base64LineLength {
		buffer.WriteString(encoded[:base64LineLength])
		buffer.WriteString("\r\n")
		encoded = encoded[base64LineLength:]
	}

	buffer.WriteString(encoded)
	buffer.WriteString("\r\n")

	return buffer.Bytes()
}
