//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/gliepins/vaultmail/internal/credentials"
	"github.com/gliepins/vaultmail/internal/crypto"
	"github.com/gliepins/vaultmail/internal/database"
	"github.com/gliepins/vaultmail/internal/intake"
	"github.com/gliepins/vaultmail/internal/maildir"
	"github.com/gliepins/vaultmail/internal/shell"
	"github.com/gliepins/vaultmail/internal/smime"
	"github.com/gliepins/vaultmail/internal/transport"
	"github.com/gliepins/vaultmail/internal/vaultbox"
)

var wireSet = wire.NewSet(
	wire.Struct(new(startCommand), "*"),
	wire.Struct(new(shellCommand), "*"),
	wire.Struct(new(syncCommand), "*"),

	database.WireSet,
	crypto.WireSet,
	smime.WireSet,
	maildir.WireSet,
	transport.WireSet,
	vaultbox.WireSet,
	credentials.WireSet,
	intake.WireSet,
	shell.WireSet,
)

func newStartCommand() (*startCommand, error) {
	panic(wire.Build(wireSet))
}

func newShellCommand() (*shellCommand, error) {
	panic(wire.Build(wireSet))
}

func newSyncCommand() (*syncCommand, error) {
	panic(wire.Build(wireSet))
}
