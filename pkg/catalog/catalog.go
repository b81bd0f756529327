// Package catalog defines the inkwell domain model: users, blueprints,
// projects with their category trees, and the activity log.
package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/auth"
)

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

// NewToken returns a fresh API token.
func NewToken() string {
	return "iw_" + uuid.NewString()
}

// User is an account that can sign in and own content.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity returns the auth identity for u.
func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// Redacted returns a copy of u without its token.
func (u User) Redacted() User {
	u.Token = ""
	return u
}

// Blueprint is a reusable content template.
type Blueprint struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// SourceText is the copy the blueprint is generated from.
	SourceText string `json:"sourceText,omitempty"`

	// Values are the generated blueprint slots, keyed by slot name.
	Values map[string]json.RawMessage `json:"values,omitempty"`

	// Categories is the field tree projects created from this blueprint start with.
	Categories []Category `json:"categories,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy of b owned by ownerID under a new ID.
func (b *Blueprint) Clone(ownerID string, now time.Time) *Blueprint {
	return &Blueprint{
		ID:          NewID(),
		OwnerID:     ownerID,
		Name:        b.Name + " (copy)",
		Description: b.Description,
		SourceText:  b.SourceText,
		Values:      CloneContent(b.Values),
		Categories:  CloneCategories(b.Categories),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Project is a piece of copy being written from a blueprint.
type Project struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	BlueprintID string     `json:"blueprintId,omitempty"`
	Name        string     `json:"name"`
	Categories  []Category `json:"categories,omitempty"`

	// Content holds generated output keyed by slot, aiContent among them.
	Content map[string]json.RawMessage `json:"content,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProjectFromBlueprint starts a project with a copy of b's category tree.
func NewProjectFromBlueprint(b *Blueprint, ownerID, name string, now time.Time) *Project {
	if name == "" {
		name = b.Name
	}
	return &Project{
		ID:          NewID(),
		OwnerID:     ownerID,
		BlueprintID: b.ID,
		Name:        name,
		Categories:  CloneCategories(b.Categories),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Activity actions.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionClone    = "clone"
	ActionGenerate = "generate"
	ActionImport   = "import"
)

// Entity types recorded in the activity log.
const (
	EntityUser      = "user"
	EntityBlueprint = "blueprint"
	EntityProject   = "project"
)

// ActivityLog records one user action.
type ActivityLog struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewActivityLog builds a log entry for an action by userID.
func NewActivityLog(userID, action, entityType, entityID, detail string, now time.Time) *ActivityLog {
	return &ActivityLog{
		ID:         NewID(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  now,
	}
}

// CloneContent deep copies a slot map.
func CloneContent(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
