package catalog

import (
	"errors"
	"fmt"
	"slices"
)

// MaxCategoryDepth is the deepest category level: category, sub-category,
// third-category.
const MaxCategoryDepth = 3

// FieldKind is how a field is edited.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldSelect   FieldKind = "select"
)

// Field is one form input within a category.
type Field struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Value       string    `json:"value,omitempty"`
}

// Category groups fields and nested categories.
type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Fields   []Field    `json:"fields,omitempty"`
	Children []Category `json:"children,omitempty"`
}

// ErrInvalidTree is wrapped by every Validate failure.
var ErrInvalidTree = errors.New("invalid category tree")

// ValidateCategories checks depth, names, field kinds, select values and
// that field IDs are unique across the whole tree.
func ValidateCategories(tree []Category) error {
	seen := map[string]bool{}
	return WalkCategories(tree, func(c *Category, depth int) error {
		if depth > MaxCategoryDepth {
			return fmt.Errorf("%w: category %q nested deeper than %d levels", ErrInvalidTree, c.Name, MaxCategoryDepth)
		}
		if c.Name == "" {
			return fmt.Errorf("%w: category %q has no name", ErrInvalidTree, c.ID)
		}

		for _, f := range c.Fields {
			if f.ID == "" {
				return fmt.Errorf("%w: field %q in %q has no id", ErrInvalidTree, f.Label, c.Name)
			}
			if seen[f.ID] {
				return fmt.Errorf("%w: duplicate field id %q", ErrInvalidTree, f.ID)
			}
			seen[f.ID] = true

			switch f.Kind {
			case FieldText, FieldTextarea, "":
			case FieldSelect:
				if f.Value != "" && !slices.Contains(f.Options, f.Value) {
					return fmt.Errorf("%w: field %q value %q is not an option", ErrInvalidTree, f.ID, f.Value)
				}
			default:
				return fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidTree, f.ID, f.Kind)
			}
		}
		return nil
	})
}

// WalkCategories visits every category depth first, parents before children.
// Top level categories have depth 1. Returning an error stops the walk.
func WalkCategories(tree []Category, fn func(c *Category, depth int) error) error {
	return walk(tree, 1, fn)
}

func walk(tree []Category, depth int, fn func(c *Category, depth int) error) error {
	for i := range tree {
		if err := fn(&tree[i], depth); err != nil {
			return err
		}
		if err := walk(tree[i].Children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Fields returns every field in the tree in depth first order.
func Fields(tree []Category) []Field {
	var out []Field
	_ = WalkCategories(tree, func(c *Category, _ int) error {
		out = append(out, c.Fields...)
		return nil
	})
	return out
}

// FindField returns a pointer into tree for the field with id.
func FindField(tree []Category, id string) (*Field, bool) {
	var found *Field
	_ = WalkCategories(tree, func(c *Category, _ int) error {
		for i := range c.Fields {
			if c.Fields[i].ID == id {
				found = &c.Fields[i]
				return errStop
			}
		}
		return nil
	})
	return found, found != nil
}

var errStop = errors.New("stop")

// SetFieldValues applies values by field ID and returns the IDs that matched
// no field.
func SetFieldValues(tree []Category, values map[string]string) []string {
	var unknown []string
	for id, v := range values {
		f, ok := FindField(tree, id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		f.Value = v
	}
	slices.Sort(unknown)
	return unknown
}

// FieldValues returns the non-empty field values keyed by field ID.
func FieldValues(tree []Category) map[string]string {
	out := map[string]string{}
	for _, f := range Fields(tree) {
		if f.Value != "" {
			out[f.ID] = f.Value
		}
	}
	return out
}

// CloneCategories deep copies tree.
func CloneCategories(tree []Category) []Category {
	if tree == nil {
		return nil
	}
	out := make([]Category, len(tree))
	for i, c := range tree {
		out[i] = Category{
			ID:       c.ID,
			Name:     c.Name,
			Fields:   cloneFields(c.Fields),
			Children: CloneCategories(c.Children),
		}
	}
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Options = slices.Clone(f.Options)
		out[i] = f
	}
	return out
}
