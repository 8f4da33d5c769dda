package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// RoleTable implements RoleVectorLookup over an immutable in-memory
// snapshot. Replace swaps the whole snapshot, so readers never observe a
// partially loaded table.
type RoleTable struct {
	dimension int
	snapshot  atomic.Pointer[map[string]Vector]
	logger    zerolog.Logger
}

// NewRoleTable creates a table from roleID -> vector
func NewRoleTable(dimension int, roles map[string]Vector, logger zerolog.Logger) (*RoleTable, error) {
	rt := &RoleTable{
		dimension: dimension,
		logger:    logger.With().Str("component", "role_table").Logger(),
	}
	if err := rt.Replace(roles); err != nil {
		return nil, err
	}
	return rt, nil
}

// Lookup returns the role vector or ErrRoleNotFound
func (rt *RoleTable) Lookup(ctx context.Context, roleID string) (Vector, error) {
	roles := *rt.snapshot.Load()
	vec, ok := roles[roleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, roleID)
	}
	return vec.Clone(), nil
}

// Len returns the number of roles in the current snapshot
func (rt *RoleTable) Len() int {
	return len(*rt.snapshot.Load())
}

// Replace validates and installs a new snapshot
func (rt *RoleTable) Replace(roles map[string]Vector) error {
	next := make(map[string]Vector, len(roles))
	for id, vec := range roles {
		if len(vec) != rt.dimension {
			return dimensionError(fmt.Sprintf("role vector %q", id), rt.dimension, len(vec))
		}
		next[id] = vec.Clone()
	}
	rt.snapshot.Store(&next)
	return nil
}

// LoadFile replaces the snapshot with a JSON object of roleID -> vector
func (rt *RoleTable) LoadFile(path string) error {
	roles, err := ReadRoleFile(path)
	if err != nil {
		return err
	}
	if err := rt.Replace(roles); err != nil {
		return fmt.Errorf("role file %s: %w", path, err)
	}
	rt.logger.Info().Str("path", path).Int("roles", len(roles)).Msg("role vectors loaded")
	return nil
}

// Watch reloads the table whenever path changes, until ctx is done. A
// reload that fails keeps the previous snapshot.
func (rt *RoleTable) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create role file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and deploy tools replace files by rename
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := rt.LoadFile(target); err != nil {
				rt.logger.Error().Err(err).Str("path", target).Msg("role vector reload failed, keeping previous table")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			rt.logger.Warn().Err(err).Msg("role file watcher error")
		}
	}
}

// NewRoleTableFromFile loads a table from a JSON file
func NewRoleTableFromFile(dimension int, path string, logger zerolog.Logger) (*RoleTable, error) {
	roles, err := ReadRoleFile(path)
	if err != nil {
		return nil, err
	}
	return NewRoleTable(dimension, roles, logger)
}

// ReadRoleFile decodes a JSON object of roleID -> vector
func ReadRoleFile(path string) (map[string]Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role file: %w", err)
	}
	var roles map[string]Vector
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode role file %s: %w", path, err)
	}
	return roles, nil
}
