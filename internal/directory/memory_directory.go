package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cashup-backend/internal/models"
)

// MemoryDirectory is an in-process Directory for tests and local runs.
type MemoryDirectory struct {
	mu         sync.RWMutex
	seq        uint
	businesses map[uint]models.Business
	personnel  map[uint]models.Personnel
	outlets    map[uint]models.Outlet
	positions  map[[2]uint]models.StaffPosition
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		businesses: map[uint]models.Business{},
		personnel:  map[uint]models.Personnel{},
		outlets:    map[uint]models.Outlet{},
		positions:  map[[2]uint]models.StaffPosition{},
	}
}

func (d *MemoryDirectory) nextID() uint {
	d.seq++
	return d.seq
}

func (d *MemoryDirectory) CreateBusinessWithOwner(_ context.Context, b *models.Business, owner *models.Personnel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.emailTaken(owner.Email, 0) {
		return ErrDuplicate
	}
	now := time.Now()
	b.ID, b.CreatedAt, b.UpdatedAt = d.nextID(), now, now
	d.businesses[b.ID] = *b

	owner.BusinessID = b.ID
	owner.IsOwner = true
	owner.ID, owner.CreatedAt, owner.UpdatedAt = d.nextID(), now, now
	d.personnel[owner.ID] = *owner
	return nil
}

func (d *MemoryDirectory) GetBusiness(_ context.Context, id uint) (*models.Business, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b, ok := d.businesses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (d *MemoryDirectory) UpdateBusiness(_ context.Context, b *models.Business) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.businesses[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now()
	d.businesses[b.ID] = *b
	return nil
}

func (d *MemoryDirectory) emailTaken(email string, except uint) bool {
	for _, p := range d.personnel {
		if p.Email == email && p.ID != except {
			return true
		}
	}
	return false
}

func (d *MemoryDirectory) CreatePersonnel(_ context.Context, p *models.Personnel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.emailTaken(p.Email, 0) {
		return ErrDuplicate
	}
	now := time.Now()
	p.ID, p.CreatedAt, p.UpdatedAt = d.nextID(), now, now
	d.personnel[p.ID] = *p
	return nil
}

func (d *MemoryDirectory) GetPersonnel(_ context.Context, id uint) (*models.Personnel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.personnel[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (d *MemoryDirectory) GetPersonnelByEmail(_ context.Context, email string) (*models.Personnel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.personnel {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) ListPersonnel(_ context.Context, businessID uint) ([]models.Personnel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []models.Personnel{}
	for _, p := range d.personnel {
		if p.BusinessID == businessID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (d *MemoryDirectory) outletNameTaken(businessID uint, name string, except uint) bool {
	for _, o := range d.outlets {
		if o.BusinessID == businessID && o.Name == name && o.ID != except {
			return true
		}
	}
	return false
}

func (d *MemoryDirectory) CreateOutlet(_ context.Context, o *models.Outlet, creatorID uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.outletNameTaken(o.BusinessID, o.Name, 0) {
		return ErrDuplicate
	}
	now := time.Now()
	o.ID, o.CreatedAt, o.UpdatedAt = d.nextID(), now, now
	d.outlets[o.ID] = *o
	d.positions[[2]uint{o.ID, creatorID}] = models.StaffPosition{
		ID:          d.nextID(),
		OutletID:    o.ID,
		PersonnelID: creatorID,
		IsStaff:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (d *MemoryDirectory) GetOutlet(_ context.Context, id uint) (*models.Outlet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	o, ok := d.outlets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (d *MemoryDirectory) GetOutletByName(_ context.Context, businessID uint, name string) (*models.Outlet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, o := range d.outlets {
		if o.BusinessID == businessID && o.Name == name {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) UpdateOutlet(_ context.Context, o *models.Outlet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.outlets[o.ID]; !ok {
		return ErrNotFound
	}
	if d.outletNameTaken(o.BusinessID, o.Name, o.ID) {
		return ErrDuplicate
	}
	o.UpdatedAt = time.Now()
	d.outlets[o.ID] = *o
	return nil
}

func (d *MemoryDirectory) ListOutlets(_ context.Context, businessID uint) ([]models.Outlet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []models.Outlet{}
	for _, o := range d.outlets {
		if o.BusinessID == businessID {
			out = append(out, o)
		}
	}
	sortOutlets(out)
	return out, nil
}

func (d *MemoryDirectory) Position(_ context.Context, outletID, personnelID uint) (*models.StaffPosition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.positions[[2]uint{outletID, personnelID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (d *MemoryDirectory) StaffOutlets(_ context.Context, personnelID uint, managerOnly bool) ([]models.Outlet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []models.Outlet{}
	for key, p := range d.positions {
		if key[1] != personnelID {
			continue
		}
		if (managerOnly && !p.IsManager) || !p.Active() {
			continue
		}
		if o, ok := d.outlets[key[0]]; ok {
			out = append(out, o)
		}
	}
	sortOutlets(out)
	return out, nil
}

func (d *MemoryDirectory) UpsertPosition(_ context.Context, p *models.StaffPosition) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := [2]uint{p.OutletID, p.PersonnelID}
	now := time.Now()
	if existing, ok := d.positions[key]; ok {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		p.ID, p.CreatedAt = d.nextID(), now
	}
	p.UpdatedAt = now
	d.positions[key] = *p
	return nil
}

func (d *MemoryDirectory) RemovePosition(_ context.Context, outletID, personnelID uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := [2]uint{outletID, personnelID}
	if _, ok := d.positions[key]; !ok {
		return ErrNotFound
	}
	delete(d.positions, key)
	return nil
}

func (d *MemoryDirectory) ListPositions(_ context.Context, outletID uint) ([]models.StaffPosition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []models.StaffPosition{}
	for key, p := range d.positions {
		if key[0] == outletID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonnelID < out[j].PersonnelID })
	return out, nil
}

func sortOutlets(out []models.Outlet) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
}
