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

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gliepins/vaultmail/internal/intake"
	"github.com/gliepins/vaultmail/internal/log"
	"github.com/gliepins/vaultmail/internal/transport"
)

type startCommand struct {
	Server       *intake.Server
	Synchronizer transport.Synchronizer
}

func (c *startCommand) run() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reconcile the routing table on boot. A failure is not fatal, the
	// table converges on the next publish.
	if err := c.Synchronizer.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("could not publish routing table on boot")
	}

	return c.Server.Run(ctx)
}
