// cache/cache.go
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
)

// FileStore keeps the inventory as one pretty-printed JSON file. It has no
// locking; a single process is expected to own the file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// load reads the whole inventory. A missing file is an empty inventory.
func (s *FileStore) load() ([]fetcher.Instance, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var instances []fetcher.Instance
	if err := json.Unmarshal(data, &instances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return instances, nil
}

func (s *FileStore) save(instances []fetcher.Instance) error {
	// Marshal the data into pretty-printed JSON
	data, err := json.MarshalIndent(instances, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instances to JSON: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// SaveInstances merges instances into the cache. Entries with the same
// target and id are replaced in place; everything else is preserved.
func (s *FileStore) SaveInstances(instances []fetcher.Instance) error {
	existing, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to load existing cache: %w", err)
	}

	position := make(map[instanceKey]int, len(existing))
	for i, inst := range existing {
		position[instanceKey{string(inst.Target), inst.InstanceID}] = i
	}
	for _, inst := range instances {
		key := instanceKey{string(inst.Target), inst.InstanceID}
		if i, ok := position[key]; ok {
			existing[i] = inst
			continue
		}
		position[key] = len(existing)
		existing = append(existing, inst)
	}

	log.Debugf("Saving %d instances to %s", len(existing), s.path)
	return s.save(existing)
}

func (s *FileStore) FetchInstances(target policy.Target) ([]fetcher.Instance, error) {
	instances, err := s.load()
	if err != nil {
		return nil, err
	}
	if target == "" {
		return instances, nil
	}

	var filtered []fetcher.Instance
	for _, inst := range instances {
		if inst.Target == target {
			filtered = append(filtered, inst)
		}
	}
	return filtered, nil
}

// Clear removes the cache file.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	log.Info("All instances cleared from storage")
	return nil
}

func (s *FileStore) Close() error { return nil }
