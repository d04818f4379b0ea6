package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// App describes one launchable application: where its executable lives and
// the xpath that identifies its main window once it is up.
type App struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path" json:"path"`
	WindowXPath string `yaml:"window_xpath" json:"window_xpath"`
}

type manifest struct {
	Apps []App `yaml:"apps"`
}

// Catalog holds the registered applications, keyed by lowercase name.
type Catalog struct {
	mu     sync.RWMutex
	apps   map[string]App
	logger *zap.Logger
}

// New creates an empty catalog
func New(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		apps:   make(map[string]App),
		logger: logger,
	}
}

// Load reads every .yaml/.yml manifest under dir and registers its apps.
// A missing directory is not an error; a malformed file is logged and
// skipped so one bad manifest never blocks the rest.
func (c *Catalog) Load(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		c.logger.Warn("catalog directory not found", zap.String("dir", dir))
		return nil
	}

	var loaded, failed int
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(info.Name())
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		n, err := c.LoadFile(path)
		if err != nil {
			c.logger.Warn("failed to load manifest",
				zap.String("file", info.Name()),
				zap.Error(err))
			failed++
			return nil
		}
		loaded += n
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("catalog loaded",
		zap.String("dir", dir),
		zap.Int("apps", loaded),
		zap.Int("failed_files", failed))
	return nil
}

// LoadFile reads a single YAML manifest and registers its apps, returning
// how many were added.
func (c *Catalog) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return 0, err
	}

	var added int
	for _, app := range m.Apps {
		if err := c.Register(app); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Register adds or replaces one app. Name and path are required.
func (c *Catalog) Register(app App) error {
	if app.Name == "" || app.Path == "" {
		return fmt.Errorf("app manifest missing required fields (name, path)")
	}

	c.mu.Lock()
	c.apps[strings.ToLower(app.Name)] = app
	c.mu.Unlock()
	return nil
}

// Lookup finds an app by name, case-insensitive.
func (c *Catalog) Lookup(name string) (App, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	app, ok := c.apps[strings.ToLower(name)]
	return app, ok
}

// List returns all registered apps sorted by name.
func (c *Catalog) List() []App {
	c.mu.RLock()
	defer c.mu.RUnlock()

	apps := make([]App, 0, len(c.apps))
	for _, app := range c.apps {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps
}

// Len returns the number of registered apps.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.apps)
}

// SeedDefaults registers the stock applications when they are not already
// present, so the service is usable without any manifest on disk.
func (c *Catalog) SeedDefaults() {
	defaults := []App{
		{
			Name:        "calculator",
			Path:        "calc.exe",
			WindowXPath: `//Window[@Name="Calculator"]`,
		},
		{
			Name:        "notepad",
			Path:        "notepad.exe",
			WindowXPath: `//Window[@Name="Untitled - Notepad"]`,
		},
	}

	var seeded int
	for _, app := range defaults {
		if _, ok := c.Lookup(app.Name); ok {
			continue
		}
		if err := c.Register(app); err == nil {
			seeded++
		}
	}
	c.logger.Info("seeded default apps", zap.Int("count", seeded))
}
