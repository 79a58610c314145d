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
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// Fingerprint computes a stable digest of a PEM encoded certificate. The
// digest is calculated over the DER bytes, so re-encoding the PEM with
// different line breaks does not change the result.
func Fingerprint(pemBytes []byte) (string, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != pemTypeCertificate {
		return "", fmt.Errorf("%w: no certificate block", ErrMalformedCertificate)
	}

	digest := sha256.Sum256(block.Bytes)
	return "sha256:" + hex.EncodeToString(digest[:]), nil
}
