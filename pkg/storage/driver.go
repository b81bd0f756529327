// Package storage defines how inkwell persists users, blueprints, projects
// and the activity log. Implementations live in subpackages: inmemory for
// tests and single process use, and ent/driver (with sqlite, postgres and
// mysql constructors) for everything else.
package storage

import (
	"context"

	"github.com/inkwellhq/inkwell/pkg/catalog"
)

// Driver is the full storage backend used by the API server.
type Driver interface {
	UserStore
	BlueprintStore
	ProjectStore
	ActivityStore

	// Close releases any resources held by the driver.
	Close() error
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts a new user. A duplicate email or token is ErrConflict.
	CreateUser(ctx context.Context, u *catalog.User) error
	GetUser(ctx context.Context, id string) (*catalog.User, error)
	GetUserByToken(ctx context.Context, token string) (*catalog.User, error)
	ListUsers(ctx context.Context) ([]*catalog.User, error)
}

// BlueprintStore persists blueprints.
type BlueprintStore interface {
	// PutBlueprint inserts or replaces a blueprint by ID.
	PutBlueprint(ctx context.Context, b *catalog.Blueprint) error
	GetBlueprint(ctx context.Context, id string) (*catalog.Blueprint, error)

	// ListBlueprints returns blueprints owned by ownerID, or every blueprint
	// when ownerID is empty, oldest first.
	ListBlueprints(ctx context.Context, ownerID string) ([]*catalog.Blueprint, error)
	DeleteBlueprint(ctx context.Context, id string) error
}

// ProjectStore persists projects.
type ProjectStore interface {
	// PutProject inserts or replaces a project by ID.
	PutProject(ctx context.Context, p *catalog.Project) error
	GetProject(ctx context.Context, id string) (*catalog.Project, error)

	// ListProjects returns projects owned by ownerID, or every project when
	// ownerID is empty, oldest first.
	ListProjects(ctx context.Context, ownerID string) ([]*catalog.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// ActivityStore persists the append-only activity log.
type ActivityStore interface {
	AppendActivity(ctx context.Context, entry *catalog.ActivityLog) error

	// ListActivity returns matching entries newest first.
	ListActivity(ctx context.Context, q ActivityQuery) ([]*catalog.ActivityLog, error)
}

// DefaultActivityLimit caps ListActivity when ActivityQuery.Limit is unset.
const DefaultActivityLimit = 100

// ActivityQuery filters ListActivity.
type ActivityQuery struct {
	// UserID restricts results to one user when set.
	UserID string

	// Limit caps the number of entries. Zero means DefaultActivityLimit.
	Limit int
}

// EffectiveLimit resolves the zero value of Limit.
func (q ActivityQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultActivityLimit
	}
	return q.Limit
}
