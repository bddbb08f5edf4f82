package directory

import (
	"context"
	"sync"
)

// In-process roster seeded from configuration. Mutations (adding
// moderators, granting or revoking privilege) apply for the process
// lifetime only; durable role management is deliberately out of
// scope.
type MemDirectory struct {
	lk        sync.RWMutex
	mainAdmin int64
	order     []int64
	mods      map[int64]bool
	priv      map[int64]bool
}

func NewMemDirectory(mainAdmin int64, moderators, privileged []int64) *MemDirectory {
	d := &MemDirectory{
		mainAdmin: mainAdmin,
		mods:      make(map[int64]bool),
		priv:      make(map[int64]bool),
	}
	for _, id := range moderators {
		if !d.mods[id] {
			d.mods[id] = true
			d.order = append(d.order, id)
		}
	}
	if !d.mods[mainAdmin] {
		d.mods[mainAdmin] = true
		d.order = append(d.order, mainAdmin)
	}
	for _, id := range privileged {
		if d.mods[id] {
			d.priv[id] = true
		}
	}
	return d
}

func (d *MemDirectory) IsModerator(ctx context.Context, userID int64) (bool, error) {
	d.lk.RLock()
	defer d.lk.RUnlock()
	return d.mods[userID], nil
}

func (d *MemDirectory) IsPrivileged(ctx context.Context, userID int64) (bool, error) {
	d.lk.RLock()
	defer d.lk.RUnlock()
	return d.priv[userID], nil
}

func (d *MemDirectory) Moderators(ctx context.Context) ([]int64, error) {
	d.lk.RLock()
	defer d.lk.RUnlock()
	out := make([]int64, len(d.order))
	copy(out, d.order)
	return out, nil
}

func (d *MemDirectory) IsMainAdmin(userID int64) bool {
	return userID == d.mainAdmin
}

// AddModerator returns false if the user already had the role.
func (d *MemDirectory) AddModerator(userID int64) bool {
	d.lk.Lock()
	defer d.lk.Unlock()
	if d.mods[userID] {
		return false
	}
	d.mods[userID] = true
	d.order = append(d.order, userID)
	return true
}

// GrantPrivilege marks an existing moderator as privileged. Returns
// ErrNotModerator if the user holds no moderator role, and false if
// they were already privileged.
func (d *MemDirectory) GrantPrivilege(userID int64) (bool, error) {
	d.lk.Lock()
	defer d.lk.Unlock()
	if !d.mods[userID] {
		return false, ErrNotModerator
	}
	if d.priv[userID] {
		return false, nil
	}
	d.priv[userID] = true
	return true, nil
}

// RevokePrivilege removes privileged status. The main admin's own privilege cannot be revoked.
func (d *MemDirectory) RevokePrivilege(userID int64) (bool, error) {
	d.lk.Lock()
	defer d.lk.Unlock()
	if userID == d.mainAdmin {
		return false, ErrMainAdmin
	}
	if !d.priv[userID] {
		return false, nil
	}
	delete(d.priv, userID)
	return true, nil
}
