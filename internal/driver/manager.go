package driver

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestFile is the name of the manifest each driver directory carries.
const ManifestFile = "driver.json"

// ErrDriverNotFound is returned when a requested driver cannot be found.
var ErrDriverNotFound = errors.New("driver not found")

// Manager discovers drivers under a directory.
type Manager struct {
	dir     string
	drivers map[string]*Driver
	mu      sync.RWMutex
}

// NewManager creates a Manager for the given drivers directory.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		drivers: make(map[string]*Driver),
	}
}

// Discover scans each subdirectory of the drivers directory for a manifest.
// A missing directory yields no drivers. Unreadable manifests are skipped.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drivers = make(map[string]*Driver)

	info, err := os.Stat(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(path, ManifestFile))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			log.Printf("Skipping driver %s: %v", entry.Name(), err)
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			log.Printf("Skipping driver %s: invalid manifest: %v", entry.Name(), err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			log.Printf("Skipping driver %s: manifest needs name and executable", entry.Name())
			continue
		}

		m.drivers[manifest.Name] = &Driver{
			Manifest:   manifest,
			Path:       path,
			Executable: filepath.Join(path, manifest.Executable),
		}
	}

	return nil
}

// Get returns a driver by name.
func (m *Manager) Get(name string) (*Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drivers[name]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return d, nil
}

// List returns all discovered drivers sorted by name.
func (m *Manager) List() []*Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()

	drivers := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		drivers = append(drivers, d)
	}
	sort.Slice(drivers, func(i, j int) bool {
		return drivers[i].Manifest.Name < drivers[j].Manifest.Name
	})
	return drivers
}

// Dir returns the drivers directory.
func (m *Manager) Dir() string {
	return m.dir
}
