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
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StorageDescriptor describes where and how the ciphertext of a message is
// stored. It is persisted as JSON and read by downstream consumers, so the
// field names form a durable contract.
type StorageDescriptor struct {
	Algorithm   string   `json:"alg"`
	Bytes       int64    `json:"bytes"`
	MaildirPath string   `json:"maildir_path"`
	Recipients  []string `json:"recipients"`
}

// Value implements the sql/driver.Valuer interface.
func (d StorageDescriptor) Value() (driver.Value, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	return string(raw), nil
}

// Scan implements the sql.Scanner interface.
func (d *StorageDescriptor) Scan(src interface{}) error {
	raw, err := driver.String.ConvertValue(src)
	if err != nil {
		return err
	}

	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("models: cannot scan %T into a storage descriptor", src)
	}

	return json.Unmarshal([]byte(s), d)
}

// StringList is a list of strings persisted as a JSON array.
type StringList []string

// Value implements the sql/driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}

	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}

	return string(raw), nil
}

// Scan implements the sql.Scanner interface.
func (l *StringList) Scan(src interface{}) error {
	raw, err := driver.String.ConvertValue(src)
	if err != nil {
		return err
	}

	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("models: cannot scan %T into a string list", src)
	}

	return json.Unmarshal([]byte(s), l)
}
