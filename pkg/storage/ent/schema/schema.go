// Package schema declares the inkwell SQL tables and creates them with ent's
// migration engine.
package schema

import (
	"context"
	"fmt"
	"math"

	"entgo.io/ent/dialect"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	UsersTable      = "users"
	BlueprintsTable = "blueprints"
	ProjectsTable   = "projects"
	ActivityTable   = "activity_logs"
)

// textSize makes a string column unbounded (text / longtext).
const textSize = math.MaxInt32

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*entschema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "email", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "role", Type: field.TypeString},
		{Name: "token", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	// UsersTableDef holds the schema information for the "users" table.
	UsersTableDef = &entschema.Table{
		Name:       UsersTable,
		Columns:    UsersColumns,
		PrimaryKey: []*entschema.Column{UsersColumns[0]},
		Indexes: []*entschema.Index{
			{Name: "user_email", Unique: true, Columns: []*entschema.Column{UsersColumns[1]}},
			{Name: "user_token", Unique: true, Columns: []*entschema.Column{UsersColumns[4]}},
		},
	}

	// BlueprintsColumns holds the columns for the "blueprints" table.
	BlueprintsColumns = []*entschema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "owner_id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize},
		{Name: "source_text", Type: field.TypeString, Size: textSize},
		{Name: "blueprint_values", Type: field.TypeString, Size: textSize},
		{Name: "categories", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// BlueprintsTableDef holds the schema information for the "blueprints" table.
	BlueprintsTableDef = &entschema.Table{
		Name:       BlueprintsTable,
		Columns:    BlueprintsColumns,
		PrimaryKey: []*entschema.Column{BlueprintsColumns[0]},
		Indexes: []*entschema.Index{
			{Name: "blueprint_owner_id", Columns: []*entschema.Column{BlueprintsColumns[1]}},
		},
	}

	// ProjectsColumns holds the columns for the "projects" table.
	ProjectsColumns = []*entschema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "owner_id", Type: field.TypeString},
		{Name: "blueprint_id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "categories", Type: field.TypeString, Size: textSize},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ProjectsTableDef holds the schema information for the "projects" table.
	ProjectsTableDef = &entschema.Table{
		Name:       ProjectsTable,
		Columns:    ProjectsColumns,
		PrimaryKey: []*entschema.Column{ProjectsColumns[0]},
		Indexes: []*entschema.Index{
			{Name: "project_owner_id", Columns: []*entschema.Column{ProjectsColumns[1]}},
		},
	}

	// ActivityColumns holds the columns for the "activity_logs" table.
	ActivityColumns = []*entschema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "action", Type: field.TypeString},
		{Name: "entity_type", Type: field.TypeString},
		{Name: "entity_id", Type: field.TypeString},
		{Name: "detail", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ActivityTableDef holds the schema information for the "activity_logs" table.
	ActivityTableDef = &entschema.Table{
		Name:       ActivityTable,
		Columns:    ActivityColumns,
		PrimaryKey: []*entschema.Column{ActivityColumns[0]},
		Indexes: []*entschema.Index{
			{Name: "activity_user_created", Columns: []*entschema.Column{ActivityColumns[1], ActivityColumns[6]}},
		},
	}

	// Tables holds every table in creation order.
	Tables = []*entschema.Table{
		UsersTableDef,
		BlueprintsTableDef,
		ProjectsTableDef,
		ActivityTableDef,
	}
)

// Create runs ent's auto-migration for Tables. Changes are append-only: new
// tables, columns and indexes.
func Create(ctx context.Context, drv dialect.Driver) error {
	migrate, err := entschema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("preparing migration: %w", err)
	}
	return migrate.Create(ctx, Tables...)
}
