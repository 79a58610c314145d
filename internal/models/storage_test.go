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

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The serialized descriptor is read by downstream consumers outside of this
// repository. The field names are a contract and must not drift.
func TestStorageDescriptorContract(t *testing.T) {
	descriptor := StorageDescriptor{
		Algorithm:   "smime-aes256",
		Bytes:       2048,
		MaildirPath: "/var/vaultmail/maildir/box1/new/x",
		Recipients:  []string{"sha256:abcdef"},
	}

	value, err := descriptor.Value()
	require.NoError(t, err)

	assert.JSONEq(t,
		`{
			"alg": "smime-aes256",
			"bytes": 2048,
			"maildir_path": "/var/vaultmail/maildir/box1/new/x",
			"recipients": ["sha256:abcdef"]
		}`,
		value.(string))

	var scanned StorageDescriptor
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, descriptor, scanned)
}

func TestStringListNilValue(t *testing.T) {
	var list StringList

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}
