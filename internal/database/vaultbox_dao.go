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

package database

import (
	"context"

	"github.com/gliepins/vaultmail/internal/models"
)

// VaultboxDao is a data access object for all vaultbox related queries.
type VaultboxDao interface {
	// Insert inserts a new vaultbox. A unique constraint on the pair of
	// domain and local_part guards against concurrent duplicate creation.
	Insert(context.Context, Queryer, *models.VaultboxEntity) error
	// Update updates an existing vaultbox.
	Update(context.Context, Queryer, *models.VaultboxEntity) error
	// FindAll returns all vaultboxes sorted by domain and local part.
	FindAll(context.Context, Queryer) ([]models.VaultboxEntity, error)
	// FindByID returns the vaultbox with the given id.
	FindByID(context.Context, Queryer, string) (*models.VaultboxEntity, error)
	// FindByAddress returns the vaultbox matching a domain and local part exactly.
	FindByAddress(ctx context.Context, q Queryer, domain, localPart string) (*models.VaultboxEntity, error)
	// FindAnyByDomain returns the oldest vaultbox of a domain, if any exists.
	FindAnyByDomain(context.Context, Queryer, string) (*models.VaultboxEntity, error)
}

// vaultboxDao is the sqlite implementation of VaultboxDao.
type vaultboxDao struct{}

// NewVaultboxDao creates a new VaultboxDao.
func NewVaultboxDao() VaultboxDao {
	return vaultboxDao{}
}

func (vaultboxDao) Insert(ctx context.Context, q Queryer, vaultbox *models.VaultboxEntity) error {
	const query = `
		insert into "vaultboxes" (
			"id" ,
			"user_id" ,
			"domain" ,
			"local_part" ,
			"display_name" ,
			"status" ,
			"kind" ,
			"created_at" ,
			"updated_at"
		) values (
			:id ,
			:user_id ,
			:domain ,
			:local_part ,
			:display_name ,
			:status ,
			:kind ,
			:created_at ,
			:updated_at
		) ;
	`

	result, err := execNamed(ctx, q, query, vaultbox)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (vaultboxDao) Update(ctx context.Context, q Queryer, vaultbox *models.VaultboxEntity) error {
	const query = `
		update "vaultboxes"
		set "display_name" = :display_name ,
		    "status" = :status ,
		    "kind" = :kind ,
		    "updated_at" = :updated_at
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, vaultbox)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (vaultboxDao) FindAll(ctx context.Context, q Queryer) ([]models.VaultboxEntity, error) {
	const query = `
		select *
		from "vaultboxes"
		order by "domain" asc, "local_part" asc ;
	`

	var vaultboxSlice []models.VaultboxEntity

	if err := selectSlice(ctx, q, &vaultboxSlice, query); err != nil {
		return nil, err
	}

	return vaultboxSlice, nil
}

func (vaultboxDao) FindByID(ctx context.Context, q Queryer, id string) (*models.VaultboxEntity, error) {
	const query = `
		select *
		from "vaultboxes"
		where "id" = $1
		limit 1 ;
	`

	var vaultbox models.VaultboxEntity

	if err := selectOne(ctx, q, &vaultbox, query, id); err != nil {
		return nil, err
	}

	return &vaultbox, nil
}

func (vaultboxDao) FindByAddress(
	ctx context.Context,
	q Queryer,
	domain, localPart string,
) (*models.VaultboxEntity, error) {
	const query = `
		select *
		from "vaultboxes"
		where "domain" = $1
		  and "local_part" = $2
		limit 1 ;
	`

	var vaultbox models.VaultboxEntity

	if err := selectOne(ctx, q, &vaultbox, query, domain, localPart); err != nil {
		return nil, err
	}

	return &vaultbox, nil
}

func (vaultboxDao) FindAnyByDomain(
	ctx context.Context,
	q Queryer,
	domain string,
) (*models.VaultboxEntity, error) {
	const query = `
		select *
		from "vaultboxes"
		where "domain" = $1
		order by "created_at" asc, "id" asc
		limit 1 ;
	`

	var vaultbox models.VaultboxEntity

	if err := selectOne(ctx, q, &vaultbox, query, domain); err != nil {
		return nil, err
	}

	return &vaultbox, nil
}
