// Package dump moves users, blueprints and projects between storage
// backends as JSON documents.
package dump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// FormatVersion is written to every dump. Import rejects other versions.
const FormatVersion = 1

// Document is one dump file.
type Document struct {
	Version    int                  `json:"version"`
	ExportedAt time.Time            `json:"exportedAt"`
	Users      []*catalog.User      `json:"users,omitempty"`
	Blueprints []*catalog.Blueprint `json:"blueprints,omitempty"`
	Projects   []*catalog.Project   `json:"projects,omitempty"`
}

// Stats counts what an import wrote or skipped.
type Stats struct {
	Files      int
	Users      int
	Blueprints int
	Projects   int
	Skipped    int
}

// Export reads every user, blueprint and project from driver. Owner limits
// blueprints and projects to one user; users are always exported in full so
// the dump can be restored into empty storage.
func Export(ctx context.Context, driver storage.Driver, owner string, now time.Time) (*Document, error) {
	users, err := driver.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	blueprints, err := driver.ListBlueprints(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing blueprints: %w", err)
	}
	projects, err := driver.ListProjects(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	return &Document{
		Version:    FormatVersion,
		ExportedAt: now.UTC(),
		Users:      users,
		Blueprints: blueprints,
		Projects:   projects,
	}, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read decodes a dump and checks its version.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding dump: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported dump version %d", doc.Version)
	}
	return &doc, nil
}

// Expand resolves file arguments. Each argument is a path or a doublestar
// pattern such as "backups/**/*.json". Matches are returned in pattern order
// without duplicates.
func Expand(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// Importer writes dump documents into a driver.
type Importer struct {
	Driver storage.Driver
	Now    func() time.Time
}

// ImportFiles reads and imports each file in order.
func (im *Importer) ImportFiles(ctx context.Context, files []string) (Stats, error) {
	var total Stats
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return total, err
		}
		doc, err := Read(f)
		_ = f.Close()
		if err != nil {
			return total, fmt.Errorf("%s: %w", path, err)
		}

		stats, err := im.Import(ctx, doc, filepath.Base(path))
		total.Files++
		total.Users += stats.Users
		total.Blueprints += stats.Blueprints
		total.Projects += stats.Projects
		total.Skipped += stats.Skipped
		if err != nil {
			return total, fmt.Errorf("%s: %w", path, err)
		}
	}
	return total, nil
}

// Import writes doc. Users that already exist, by ID or by a conflicting
// email or token, are skipped. Blueprints and projects replace stored
// entities with the same ID. Entities owned by unknown users are skipped.
// Each imported blueprint and project is recorded in the activity log with
// source as its detail.
func (im *Importer) Import(ctx context.Context, doc *Document, source string) (Stats, error) {
	var stats Stats
	now := time.Now
	if im.Now != nil {
		now = im.Now
	}

	owners := make(map[string]bool)
	for _, u := range doc.Users {
		_, err := im.Driver.GetUser(ctx, u.ID)
		switch {
		case err == nil:
			owners[u.ID] = true
			stats.Skipped++
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return stats, fmt.Errorf("looking up user %s: %w", u.ID, err)
		}

		if err := im.Driver.CreateUser(ctx, u); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("creating user %s: %w", u.ID, err)
		}
		owners[u.ID] = true
		stats.Users++
	}

	ownerExists := func(id string) (bool, error) {
		if known, ok := owners[id]; ok {
			return known, nil
		}
		_, err := im.Driver.GetUser(ctx, id)
		switch {
		case err == nil:
			owners[id] = true
		case errors.Is(err, storage.ErrNotFound):
			owners[id] = false
		default:
			return false, err
		}
		return owners[id], nil
	}

	record := func(ownerID, entityType, entityID string) error {
		entry := catalog.NewActivityLog(ownerID, catalog.ActionImport, entityType, entityID, source, now().UTC())
		return im.Driver.AppendActivity(ctx, entry)
	}

	for _, b := range doc.Blueprints {
		ok, err := ownerExists(b.OwnerID)
		if err != nil {
			return stats, err
		}
		if !ok {
			stats.Skipped++
			continue
		}
		if err := im.Driver.PutBlueprint(ctx, b); err != nil {
			return stats, fmt.Errorf("writing blueprint %s: %w", b.ID, err)
		}
		if err := record(b.OwnerID, catalog.EntityBlueprint, b.ID); err != nil {
			return stats, err
		}
		stats.Blueprints++
	}

	for _, p := range doc.Projects {
		ok, err := ownerExists(p.OwnerID)
		if err != nil {
			return stats, err
		}
		if !ok {
			stats.Skipped++
			continue
		}
		if err := im.Driver.PutProject(ctx, p); err != nil {
			return stats, fmt.Errorf("writing project %s: %w", p.ID, err)
		}
		if err := record(p.OwnerID, catalog.EntityProject, p.ID); err != nil {
			return stats, err
		}
		stats.Projects++
	}

	return stats, nil
}
