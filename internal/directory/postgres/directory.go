// Package postgres reads the contact and asset directory tables maintained by
// the estate application.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
)

type Directory struct {
	db *sql.DB
}

func New(db *sql.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) FamilyContacts(ctx context.Context, userID id.UserID) ([]models.Contact, error) {
	return d.contacts(ctx, userID, false)
}

func (d *Directory) ProfessionalContacts(ctx context.Context, userID id.UserID) ([]models.Contact, error) {
	return d.contacts(ctx, userID, true)
}

func (d *Directory) contacts(ctx context.Context, userID id.UserID, professional bool) ([]models.Contact, error) {
	query := `
		SELECT id, name, email, relationship
		FROM contacts
		WHERE user_id = $1 AND professional = $2
		ORDER BY name
	`
	rows, err := d.db.QueryContext(ctx, query, uuid.UUID(userID), professional)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var (
			c   models.Contact
			cid uuid.UUID
		)
		if err := rows.Scan(&cid, &c.Name, &c.Email, &c.Relationship); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.ID = id.ContactID(cid)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *Directory) AssetsWithBeneficiaries(ctx context.Context, userID id.UserID) ([]models.AssetHolding, error) {
	query := `
		SELECT a.id, a.name, b.beneficiary_id
		FROM assets a
		LEFT JOIN asset_beneficiaries b ON b.asset_id = a.id
		WHERE a.user_id = $1
		ORDER BY a.id
	`
	rows, err := d.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var (
		out     []models.AssetHolding
		current *models.AssetHolding
	)
	for rows.Next() {
		var (
			aid  uuid.UUID
			name string
			bid  uuid.NullUUID
		)
		if err := rows.Scan(&aid, &name, &bid); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		if current == nil || current.AssetID != id.AssetID(aid) {
			out = append(out, models.AssetHolding{AssetID: id.AssetID(aid), Name: name})
			current = &out[len(out)-1]
		}
		if bid.Valid {
			current.BeneficiaryIDs = append(current.BeneficiaryIDs, id.BeneficiaryID(bid.UUID))
		}
	}
	return out, rows.Err()
}
