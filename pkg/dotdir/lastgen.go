package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const lastGenerationFile = "last_generation.json"

// LastGeneration is the result of the most recent `inkwell generate` run,
// kept so it can be shown again without another generation.
type LastGeneration struct {
	// Trigger is "blueprint" or "project".
	Trigger  string                     `json:"trigger"`
	EntityID string                     `json:"entityId,omitempty"`
	Content  map[string]json.RawMessage `json:"content"`
	At       time.Time                  `json:"at"`
}

// LoadLastGeneration reads the saved result. Returns nil, nil when nothing
// has been saved yet.
func (m *Manager) LoadLastGeneration(overrideDir string) (*LastGeneration, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, lastGenerationFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last generation: %w", err)
	}

	last := &LastGeneration{}
	if err := json.Unmarshal(data, last); err != nil {
		return nil, fmt.Errorf("parsing last generation: %w", err)
	}

	return last, nil
}

// SaveLastGeneration overwrites the saved result.
func (m *Manager) SaveLastGeneration(last *LastGeneration, overrideDir string) error {
	if last == nil {
		return errors.New("cannot save nil generation")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last generation: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastGenerationFile), data, 0o600); err != nil {
		return fmt.Errorf("writing last generation: %w", err)
	}

	return nil
}

// ClearLastGeneration removes the saved result. Missing files are not an error.
func (m *Manager) ClearLastGeneration(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, lastGenerationFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing last generation: %w", err)
	}

	return nil
}
