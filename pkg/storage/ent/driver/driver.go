// Package entdriver implements storage.Driver on top of ent's SQL dialect
// builder. It is database agnostic and is embedded by the sqlite, postgres
// and mysql drivers.
package entdriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/storage"
	"github.com/inkwellhq/inkwell/pkg/storage/ent/schema"
)

// EntDriver provides storage operations for any ent SQL dialect.
type EntDriver struct {
	DB      *sql.DB
	dialect string
	drv     *entsql.Driver
}

var _ storage.Driver = (*EntDriver)(nil)

// New wraps db for the named ent dialect and creates the schema.
func New(ctx context.Context, dialectName string, db *sql.DB) (*EntDriver, error) {
	drv := entsql.OpenDB(dialectName, db)
	if err := schema.Create(ctx, drv); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EntDriver{DB: db, dialect: dialectName, drv: drv}, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.dialect)
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.drv.Close()
}

// Dialect returns the ent dialect name.
func (ed *EntDriver) Dialect() string {
	return ed.dialect
}

func (ed *EntDriver) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	return ed.DB.ExecContext(ctx, query, args...)
}

// CreateUser inserts a user, returning storage.ErrConflict when the ID,
// email or token is taken.
func (ed *EntDriver) CreateUser(ctx context.Context, u *catalog.User) error {
	if u == nil {
		return errors.New("cannot store nil user")
	}

	b := ed.builder()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(schema.UsersTable)).
		Where(entsql.Or(
			entsql.EQ("id", u.ID),
			entsql.EQ("email", u.Email),
			entsql.EQ("token", u.Token),
		)).
		Query()

	var n int
	if err := ed.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if n > 0 {
		return storage.ErrConflict
	}

	query, args = b.Insert(schema.UsersTable).
		Columns("id", "email", "name", "role", "token", "created_at").
		Values(u.ID, u.Email, u.Name, string(u.Role), u.Token, u.CreatedAt.UTC()).
		Query()
	if _, err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("could not execute user creation: %w", err)
	}
	return nil
}

func (ed *EntDriver) userSelector() *entsql.Selector {
	b := ed.builder()
	return b.Select("id", "email", "name", "role", "token", "created_at").
		From(b.Table(schema.UsersTable))
}

func (ed *EntDriver) GetUser(ctx context.Context, id string) (*catalog.User, error) {
	users, err := ed.queryUsers(ctx, ed.userSelector().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, storage.NotFoundError{Kind: catalog.EntityUser, ID: id}
	}
	return users[0], nil
}

func (ed *EntDriver) GetUserByToken(ctx context.Context, token string) (*catalog.User, error) {
	if token == "" {
		return nil, storage.NotFoundError{Kind: catalog.EntityUser}
	}

	users, err := ed.queryUsers(ctx, ed.userSelector().Where(entsql.EQ("token", token)))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, storage.NotFoundError{Kind: catalog.EntityUser}
	}
	return users[0], nil
}

func (ed *EntDriver) ListUsers(ctx context.Context) ([]*catalog.User, error) {
	return ed.queryUsers(ctx, ed.userSelector().OrderBy(entsql.Asc("created_at"), entsql.Asc("id")))
}

func (ed *EntDriver) queryUsers(ctx context.Context, sel *entsql.Selector) ([]*catalog.User, error) {
	query, args := sel.Query()
	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []*catalog.User
	for rows.Next() {
		u := &catalog.User{}
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.Token, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = auth.Role(role)
		u.CreatedAt = u.CreatedAt.UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

// PutBlueprint upserts a blueprint by ID.
func (ed *EntDriver) PutBlueprint(ctx context.Context, bp *catalog.Blueprint) error {
	if bp == nil {
		return errors.New("cannot store nil blueprint")
	}

	values, err := marshalText(bp.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal blueprint values: %w", err)
	}
	categories, err := marshalText(bp.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	query, args := ed.builder().Insert(schema.BlueprintsTable).
		Columns("id", "owner_id", "name", "description", "source_text", "blueprint_values", "categories", "created_at", "updated_at").
		Values(bp.ID, bp.OwnerID, bp.Name, bp.Description, bp.SourceText, values, categories, bp.CreatedAt.UTC(), bp.UpdatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("could not execute blueprint upsert: %w", err)
	}
	return nil
}

func (ed *EntDriver) blueprintSelector() *entsql.Selector {
	b := ed.builder()
	return b.Select("id", "owner_id", "name", "description", "source_text", "blueprint_values", "categories", "created_at", "updated_at").
		From(b.Table(schema.BlueprintsTable))
}

func (ed *EntDriver) GetBlueprint(ctx context.Context, id string) (*catalog.Blueprint, error) {
	out, err := ed.queryBlueprints(ctx, ed.blueprintSelector().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, storage.NotFoundError{Kind: catalog.EntityBlueprint, ID: id}
	}
	return out[0], nil
}

func (ed *EntDriver) ListBlueprints(ctx context.Context, ownerID string) ([]*catalog.Blueprint, error) {
	sel := ed.blueprintSelector()
	if ownerID != "" {
		sel.Where(entsql.EQ("owner_id", ownerID))
	}
	return ed.queryBlueprints(ctx, sel.OrderBy(entsql.Asc("created_at"), entsql.Asc("id")))
}

func (ed *EntDriver) queryBlueprints(ctx context.Context, sel *entsql.Selector) ([]*catalog.Blueprint, error) {
	query, args := sel.Query()
	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blueprints: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Blueprint
	for rows.Next() {
		bp := &catalog.Blueprint{}
		var values, categories string
		if err := rows.Scan(&bp.ID, &bp.OwnerID, &bp.Name, &bp.Description, &bp.SourceText,
			&values, &categories, &bp.CreatedAt, &bp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blueprint: %w", err)
		}
		if err := unmarshalText(values, &bp.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blueprint values: %w", err)
		}
		if err := unmarshalText(categories, &bp.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
		bp.CreatedAt, bp.UpdatedAt = bp.CreatedAt.UTC(), bp.UpdatedAt.UTC()
		out = append(out, bp)
	}
	return out, rows.Err()
}

func (ed *EntDriver) DeleteBlueprint(ctx context.Context, id string) error {
	return ed.deleteByID(ctx, schema.BlueprintsTable, catalog.EntityBlueprint, id)
}

// PutProject upserts a project by ID.
func (ed *EntDriver) PutProject(ctx context.Context, p *catalog.Project) error {
	if p == nil {
		return errors.New("cannot store nil project")
	}

	categories, err := marshalText(p.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	content, err := marshalText(p.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	query, args := ed.builder().Insert(schema.ProjectsTable).
		Columns("id", "owner_id", "blueprint_id", "name", "categories", "content", "created_at", "updated_at").
		Values(p.ID, p.OwnerID, p.BlueprintID, p.Name, categories, content, p.CreatedAt.UTC(), p.UpdatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("could not execute project upsert: %w", err)
	}
	return nil
}

func (ed *EntDriver) projectSelector() *entsql.Selector {
	b := ed.builder()
	return b.Select("id", "owner_id", "blueprint_id", "name", "categories", "content", "created_at", "updated_at").
		From(b.Table(schema.ProjectsTable))
}

func (ed *EntDriver) GetProject(ctx context.Context, id string) (*catalog.Project, error) {
	out, err := ed.queryProjects(ctx, ed.projectSelector().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, storage.NotFoundError{Kind: catalog.EntityProject, ID: id}
	}
	return out[0], nil
}

func (ed *EntDriver) ListProjects(ctx context.Context, ownerID string) ([]*catalog.Project, error) {
	sel := ed.projectSelector()
	if ownerID != "" {
		sel.Where(entsql.EQ("owner_id", ownerID))
	}
	return ed.queryProjects(ctx, sel.OrderBy(entsql.Asc("created_at"), entsql.Asc("id")))
}

func (ed *EntDriver) queryProjects(ctx context.Context, sel *entsql.Selector) ([]*catalog.Project, error) {
	query, args := sel.Query()
	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Project
	for rows.Next() {
		p := &catalog.Project{}
		var categories, content string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.BlueprintID, &p.Name,
			&categories, &content, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if err := unmarshalText(categories, &p.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
		if err := unmarshalText(content, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content: %w", err)
		}
		p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (ed *EntDriver) DeleteProject(ctx context.Context, id string) error {
	return ed.deleteByID(ctx, schema.ProjectsTable, catalog.EntityProject, id)
}

func (ed *EntDriver) AppendActivity(ctx context.Context, entry *catalog.ActivityLog) error {
	if entry == nil {
		return errors.New("cannot store nil activity log")
	}

	query, args := ed.builder().Insert(schema.ActivityTable).
		Columns("id", "user_id", "action", "entity_type", "entity_id", "detail", "created_at").
		Values(entry.ID, entry.UserID, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt.UTC()).
		Query()
	if _, err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("could not execute activity insert: %w", err)
	}
	return nil
}

func (ed *EntDriver) ListActivity(ctx context.Context, q storage.ActivityQuery) ([]*catalog.ActivityLog, error) {
	b := ed.builder()
	sel := b.Select("id", "user_id", "action", "entity_type", "entity_id", "detail", "created_at").
		From(b.Table(schema.ActivityTable))
	if q.UserID != "" {
		sel.Where(entsql.EQ("user_id", q.UserID))
	}
	query, args := sel.OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(q.EffectiveLimit()).
		Query()

	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []*catalog.ActivityLog
	for rows.Next() {
		e := &catalog.ActivityLog{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (ed *EntDriver) deleteByID(ctx context.Context, table, kind, id string) error {
	query, args := ed.builder().Delete(table).Where(entsql.EQ("id", id)).Query()
	res, err := ed.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("could not delete %s: %w", kind, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not delete %s: %w", kind, err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// marshalText encodes v for a JSON text column. nil maps and slices are
// stored as "null".
func marshalText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalText(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
