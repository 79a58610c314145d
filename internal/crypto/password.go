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

package crypto

import (
	"crypto/rand"
	"io"
	"math/big"
)

// passwordCharset is the fixed alphabet for generated passwords. It avoids
// characters that tend to break copy-paste or shell quoting.
const passwordCharset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"-_.!"

// PasswordGenerator is a service to generate high-entropy passwords.
type PasswordGenerator interface {
	// GeneratePassword generates a new password of n characters.
	GeneratePassword(n int) (string, error)
}

// NewPasswordGenerator creates a new password generator backed by crypto/rand.
func NewPasswordGenerator() PasswordGenerator {
	return &randomPasswordGenerator{random: rand.Reader}
}

type randomPasswordGenerator struct {
	random io.Reader
}

func (r randomPasswordGenerator) GeneratePassword(n int) (string, error) {
	var (
		password = make([]byte, n)
		max      = big.NewInt(int64(len(passwordCharset)))
	)

	for i := range password {
		index, err := rand.Int(r.random, max)
		if err != nil {
			return "", err
		}

		password[i] = passwordCharset[index.Int64()]
	}

	return string(password), nil
}
