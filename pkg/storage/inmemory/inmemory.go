// Package inmemory provides a storage.Driver backed by maps.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps. Values are copied
// on the way in and out so callers never share state with the store.
type Driver struct {
	// mu guards every map and the activity slice
	mu sync.RWMutex

	users      map[string]*catalog.User
	blueprints map[string]*catalog.Blueprint
	projects   map[string]*catalog.Project

	// activity is kept in append order
	activity []*catalog.ActivityLog
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		users:      make(map[string]*catalog.User),
		blueprints: make(map[string]*catalog.Blueprint),
		projects:   make(map[string]*catalog.Project),
	}
}

func (d *Driver) CreateUser(_ context.Context, u *catalog.User) error {
	if u == nil {
		return errors.New("cannot store nil user")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if existing.ID == u.ID || existing.Email == u.Email ||
			(u.Token != "" && existing.Token == u.Token) {
			return storage.ErrConflict
		}
	}

	c := *u
	d.users[u.ID] = &c
	return nil
}

func (d *Driver) GetUser(_ context.Context, id string) (*catalog.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: catalog.EntityUser, ID: id}
	}
	c := *u
	return &c, nil
}

func (d *Driver) GetUserByToken(_ context.Context, token string) (*catalog.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if token != "" {
		for _, u := range d.users {
			if u.Token == token {
				c := *u
				return &c, nil
			}
		}
	}
	return nil, storage.NotFoundError{Kind: catalog.EntityUser}
}

func (d *Driver) ListUsers(_ context.Context) ([]*catalog.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*catalog.User, 0, len(d.users))
	for _, u := range d.users {
		c := *u
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *catalog.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (d *Driver) PutBlueprint(_ context.Context, b *catalog.Blueprint) error {
	if b == nil {
		return errors.New("cannot store nil blueprint")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.blueprints[b.ID] = copyBlueprint(b)
	return nil
}

func (d *Driver) GetBlueprint(_ context.Context, id string) (*catalog.Blueprint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b, ok := d.blueprints[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: catalog.EntityBlueprint, ID: id}
	}
	return copyBlueprint(b), nil
}

func (d *Driver) ListBlueprints(_ context.Context, ownerID string) ([]*catalog.Blueprint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*catalog.Blueprint
	for _, b := range d.blueprints {
		if ownerID == "" || b.OwnerID == ownerID {
			out = append(out, copyBlueprint(b))
		}
	}
	slices.SortFunc(out, func(a, b *catalog.Blueprint) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (d *Driver) DeleteBlueprint(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.blueprints[id]; !ok {
		return storage.NotFoundError{Kind: catalog.EntityBlueprint, ID: id}
	}
	delete(d.blueprints, id)
	return nil
}

func (d *Driver) PutProject(_ context.Context, p *catalog.Project) error {
	if p == nil {
		return errors.New("cannot store nil project")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.projects[p.ID] = copyProject(p)
	return nil
}

func (d *Driver) GetProject(_ context.Context, id string) (*catalog.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.projects[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: catalog.EntityProject, ID: id}
	}
	return copyProject(p), nil
}

func (d *Driver) ListProjects(_ context.Context, ownerID string) ([]*catalog.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*catalog.Project
	for _, p := range d.projects {
		if ownerID == "" || p.OwnerID == ownerID {
			out = append(out, copyProject(p))
		}
	}
	slices.SortFunc(out, func(a, b *catalog.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (d *Driver) DeleteProject(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[id]; !ok {
		return storage.NotFoundError{Kind: catalog.EntityProject, ID: id}
	}
	delete(d.projects, id)
	return nil
}

func (d *Driver) AppendActivity(_ context.Context, entry *catalog.ActivityLog) error {
	if entry == nil {
		return errors.New("cannot store nil activity log")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c := *entry
	d.activity = append(d.activity, &c)
	return nil
}

func (d *Driver) ListActivity(_ context.Context, q storage.ActivityQuery) ([]*catalog.ActivityLog, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*catalog.ActivityLog
	for i := len(d.activity) - 1; i >= 0; i-- {
		entry := d.activity[i]
		if q.UserID != "" && entry.UserID != q.UserID {
			continue
		}
		c := *entry
		out = append(out, &c)
	}

	// imported entries can arrive out of time order
	slices.SortStableFunc(out, func(a, b *catalog.ActivityLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit := q.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func copyBlueprint(b *catalog.Blueprint) *catalog.Blueprint {
	c := *b
	c.Values = catalog.CloneContent(b.Values)
	c.Categories = catalog.CloneCategories(b.Categories)
	return &c
}

func copyProject(p *catalog.Project) *catalog.Project {
	c := *p
	c.Content = catalog.CloneContent(p.Content)
	c.Categories = catalog.CloneCategories(p.Categories)
	return &c
}
