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

package shell

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/gliepins/vaultmail/internal/models"
)

var errNoVaultboxes = errors.New("there are no vaultboxes configured")

func (s *Shell) bootstrapDomain(ctx *cmdContext) error {
	userID, err := ctx.ask("Owner user id: ")
	if err != nil {
		return err
	}

	rawAddress, err := ctx.ask("First address [local-part@domain]: ")
	if err != nil {
		return err
	}

	addr, err := models.ParseNormalized(rawAddress)
	if err != nil {
		return fmt.Errorf("could not parse address %q: %w", rawAddress, err)
	}

	vaultbox, err := s.resolver.Bootstrap(ctx, userID, addr)
	if err != nil {
		return fmt.Errorf("could not bootstrap domain %q: %w", addr.Domain(), err)
	}

	ctx.info("Vaultbox %q added with id=%s.", vaultbox.Address(), vaultbox.ID)
	ctx.info("Further addresses of %q are provisioned on first contact.", addr.Domain())
	return nil
}

func (s *Shell) listVaultboxes(ctx *cmdContext) error {
	vaultboxes, err := s.vaultboxDao.FindAll(ctx, s.conn)
	if err != nil {
		return err
	}

	ctx.info("(%d) Vaultboxes", len(vaultboxes))

	for _, vaultbox := range vaultboxes {
		ctx.info("  %-40s  %s  %s  id=%s",
			vaultbox.Address(), vaultbox.Status, vaultbox.Kind, vaultbox.ID)
	}

	return nil
}

func (s *Shell) infoVaultbox(ctx *cmdContext) error {
	vaultbox, err := s.selectOneVaultbox(ctx)
	if err != nil {
		return err
	}

	certSlice, err := s.certificateDao.FindByVaultbox(ctx, s.conn, vaultbox.ID)
	if err != nil {
		return err
	}

	messageCount, err := s.messageDao.CountByVaultbox(ctx, s.conn, vaultbox.ID)
	if err != nil {
		return err
	}

	ctx.info("ID:      %s", vaultbox.ID)
	ctx.info("Address: %s", vaultbox.Address())
	ctx.info("Owner:   %s", vaultbox.UserID)
	ctx.info("Status:  %s", vaultbox.Status)
	ctx.info("Kind:    %s", vaultbox.Kind)
	ctx.info("")
	ctx.info("(%d) Messages", messageCount)
	ctx.info("(%d) Certificates", len(certSlice))

	for _, cert := range certSlice {
		ctx.info("  %s  issued=%s",
			cert.Fingerprint, time.Unix(cert.CreatedAt, 0).Format(time.DateOnly))
	}

	creds, err := s.smtpCredentialDao.FindByVaultbox(ctx, s.conn, vaultbox.ID)
	if err == nil {
		ctx.info("")
		ctx.info("Relay username: %s", creds.Username)
	}

	return nil
}

func (s *Shell) addCertificate(ctx *cmdContext) error {
	vaultbox, err := s.selectOneVaultbox(ctx)
	if err != nil {
		return err
	}

	filename, err := ctx.ask("Certificate file [PEM]: ")
	if err != nil {
		return err
	}

	pemBytes, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", filename, err)
	}

	cert, err := s.resolver.AddCertificate(ctx, vaultbox.ID, pemBytes)
	if err != nil {
		return fmt.Errorf("could not add certificate to %q: %w", vaultbox.Address(), err)
	}

	ctx.info("Certificate %s added to %q.", cert.Fingerprint, vaultbox.Address())
	return nil
}

func (s *Shell) issueCredentials(ctx *cmdContext) error {
	vaultbox, err := s.selectOneVaultbox(ctx)
	if err != nil {
		return err
	}

	issued, err := s.credentials.Issue(ctx, vaultbox.ID)
	if err != nil {
		return fmt.Errorf("could not issue credentials for %q: %w", vaultbox.Address(), err)
	}

	ctx.info("Credentials for %q. The password is shown only this once.", vaultbox.Address())
	ctx.info("")
	ctx.info("Username: %s", issued.Username)
	ctx.info("Password: %s", issued.Password)
	ctx.info("Server:   %s:%d (%s)", issued.Host, issued.Port, issued.Security)
	return nil
}

func (s *Shell) syncTransport(ctx *cmdContext) error {
	if err := s.synchronizer.Sync(ctx); err != nil {
		return fmt.Errorf("could not publish routing table: %w", err)
	}

	ctx.info("Routing table published.")
	return nil
}

func (s *Shell) selectOneVaultbox(ctx *cmdContext) (*models.VaultboxEntity, error) {
	vaultboxes, err := s.vaultboxDao.FindAll(ctx, s.conn)
	if err != nil {
		return nil, err
	}

	if len(vaultboxes) == 0 {
		return nil, errNoVaultboxes
	}

	index, err := fuzzyfinder.Find(vaultboxes, mapVaultboxSearch(vaultboxes))
	if err != nil {
		return nil, err
	}

	return &vaultboxes[index], nil
}

func mapVaultboxSearch(vaultboxes []models.VaultboxEntity) func(int) string {
	return func(i int) string {
		return vaultboxes[i].Address()
	}
}
