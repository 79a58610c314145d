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

package intake

import (
	"errors"
	"fmt"
)

// FailureCode categorizes a failed delivery. The codes are part of the
// endpoint response contract.
type FailureCode string

const (
	// CodeInvalidRequest is used for missing or malformed destinations and
	// unreadable payloads.
	CodeInvalidRequest FailureCode = "invalid_request"
	// CodeUnknownDomain is used for addresses of a domain without any
	// bootstrapped vaultbox.
	CodeUnknownDomain FailureCode = "unknown_domain"
	// CodeNoCertificates is used when a vaultbox has no recipient key.
	CodeNoCertificates FailureCode = "no_certificates"
	// CodeEncryptionFailed is used for failures of the encryption engine.
	CodeEncryptionFailed FailureCode = "encryption_failed"
	// CodeStorageFailed is used for failures writing the ciphertext file.
	CodeStorageFailed FailureCode = "storage_failed"
	// CodeMetadataFailed is used when the ciphertext is durably stored, but
	// the metadata row could not be recorded.
	CodeMetadataFailed FailureCode = "metadata_failed"
)

// Failure is a categorized delivery error.
type Failure struct {
	Code  FailureCode
	cause error
}

func fail(code FailureCode, cause error) *Failure {
	return &Failure{Code: code, cause: cause}
}

func (f *Failure) Error() string {
	if f.cause == nil {
		return fmt.Sprintf("intake: %s", f.Code)
	}

	return fmt.Sprintf("intake: %s: %v", f.Code, f.cause)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// FailureCodeOf extracts the failure code of a delivery error. Errors that
// escaped categorization count as storage failures, because that is the most
// conservative assumption for the caller.
func FailureCodeOf(err error) FailureCode {
	var failure *Failure

	if errors.As(err, &failure) {
		return failure.Code
	}

	return CodeStorageFailed
}
