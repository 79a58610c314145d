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

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type fieldRequest struct{}
type fieldOrigin struct{}
type fieldVaultbox struct{}

// WithRequest adds the intake request identifier to the context.
func WithRequest(ctx context.Context, request string) context.Context {
	return context.WithValue(ctx, fieldRequest{}, request)
}

// WithOrigin adds the origin of processing to the context.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, fieldOrigin{}, origin)
}

// WithVaultbox adds the vaultbox identifier to the context.
func WithVaultbox(ctx context.Context, vaultbox string) context.Context {
	return context.WithValue(ctx, fieldVaultbox{}, vaultbox)
}

// appendContextFields adds defined fields in the context to the log event.
func appendContextFields(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	if request, ok := ctx.Value(fieldRequest{}).(string); ok {
		event.Str("request", request)
	}

	if origin, ok := ctx.Value(fieldOrigin{}).(string); ok {
		event.Str("origin", origin)
	}

	if vaultbox, ok := ctx.Value(fieldVaultbox{}).(string); ok {
		event.Str("vaultbox", vaultbox)
	}

	return event
}
