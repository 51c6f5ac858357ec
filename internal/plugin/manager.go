package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestFile is the file every plugin directory must contain.
const ManifestFile = "plugin.json"

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager keeps the set of plugins found under a directory and indexes them by the events
// they subscribe to.
type Manager struct {
	pluginDir string

	mu       sync.RWMutex
	byName   map[string]*Plugin
	ordered  []*Plugin
	byEvent  map[string][]*Plugin
	wildcard []*Plugin
}

// NewManager creates a Manager rooted at pluginDir. Nothing is loaded until Discover.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		byName:    make(map[string]*Plugin),
		byEvent:   make(map[string][]*Plugin),
	}
}

// Discover replaces the loaded set with the plugins currently on disk. A missing plugin
// directory is not an error. Subdirectories with an unreadable or incomplete manifest are
// logged and skipped.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.pluginDir)
	if errors.Is(err, fs.ErrNotExist) {
		entries = nil
	} else if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	found := make([]*Plugin, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Printf("Skipping plugin %s: %v", entry.Name(), err)
			continue
		}
		found = append(found, p)
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].Manifest.Name < found[j].Manifest.Name
	})

	byName := make(map[string]*Plugin, len(found))
	byEvent := make(map[string][]*Plugin)
	var wildcard []*Plugin
	ordered := found[:0]
	for _, p := range found {
		if _, dup := byName[p.Manifest.Name]; dup {
			log.Printf("Skipping plugin at %s: name %q already loaded", p.Path, p.Manifest.Name)
			continue
		}
		byName[p.Manifest.Name] = p
		ordered = append(ordered, p)
		for _, ev := range p.Manifest.Events {
			if ev == "*" {
				wildcard = append(wildcard, p)
				continue
			}
			byEvent[ev] = append(byEvent[ev], p)
		}
	}

	m.mu.Lock()
	m.byName = byName
	m.ordered = ordered
	m.byEvent = byEvent
	m.wildcard = wildcard
	m.mu.Unlock()
	return nil
}

// loadPlugin reads the manifest in dir. It returns an fs.ErrNotExist error when dir has no
// manifest at all.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs name and executable")
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns the plugin with the given manifest name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.byName[name]; ok {
		return p, nil
	}
	return nil, ErrPluginNotFound
}

// List returns the loaded plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Plugin(nil), m.ordered...)
}

// Subscribers returns the plugins that handle event, sorted by name.
func (m *Manager) Subscribers(event string) []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	named := m.byEvent[event]
	if len(named) == 0 && len(m.wildcard) == 0 {
		return nil
	}
	out := make([]*Plugin, 0, len(named)+len(m.wildcard))
	out = append(out, named...)
	for _, p := range m.wildcard {
		if !containsPlugin(named, p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.Name < out[j].Manifest.Name
	})
	return out
}

func containsPlugin(list []*Plugin, p *Plugin) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

// PluginDir returns the directory plugins are loaded from.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
