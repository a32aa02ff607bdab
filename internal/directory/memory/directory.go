// Package memory implements the contact and asset directories in process
// memory. Tests and single-node deployments seed it directly; production
// wiring uses the postgres adapter.
package memory

import (
	"context"
	"sync"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
)

type Directory struct {
	mu            sync.RWMutex
	family        map[id.UserID][]models.Contact
	professionals map[id.UserID][]models.Contact
	assets        map[id.UserID][]models.AssetHolding
}

func New() *Directory {
	return &Directory{
		family:        make(map[id.UserID][]models.Contact),
		professionals: make(map[id.UserID][]models.Contact),
		assets:        make(map[id.UserID][]models.AssetHolding),
	}
}

func (d *Directory) AddFamilyContact(userID id.UserID, c models.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.family[userID] = append(d.family[userID], c)
}

func (d *Directory) AddProfessionalContact(userID id.UserID, c models.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.professionals[userID] = append(d.professionals[userID], c)
}

func (d *Directory) AddAsset(userID id.UserID, h models.AssetHolding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assets[userID] = append(d.assets[userID], h)
}

func (d *Directory) FamilyContacts(_ context.Context, userID id.UserID) ([]models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Contact(nil), d.family[userID]...), nil
}

func (d *Directory) ProfessionalContacts(_ context.Context, userID id.UserID) ([]models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Contact(nil), d.professionals[userID]...), nil
}

func (d *Directory) AssetsWithBeneficiaries(_ context.Context, userID id.UserID) ([]models.AssetHolding, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	holdings := d.assets[userID]
	out := make([]models.AssetHolding, 0, len(holdings))
	for _, h := range holdings {
		cp := h
		cp.BeneficiaryIDs = append([]id.BeneficiaryID(nil), h.BeneficiaryIDs...)
		out = append(out, cp)
	}
	return out, nil
}
