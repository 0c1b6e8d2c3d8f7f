package activity

import (
	"fmt"
	"io/fs"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the directory inside the filesystem holding activity definitions.
const Dir = "activities"

type yamlActivity struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Order       int        `yaml:"order"`
	Enabled     *bool      `yaml:"enabled,omitempty"`
	Steps       []yamlStep `yaml:"steps"`
	Loop        *yamlLoop  `yaml:"loop,omitempty"`
}

type yamlStep struct {
	Type     string   `yaml:"type"`
	URL      string   `yaml:"url,omitempty"`
	Selector string   `yaml:"selector,omitempty"`
	Script   string   `yaml:"script,omitempty"`
	Duration duration `yaml:"duration,omitempty"`
	Timeout  duration `yaml:"timeout,omitempty"`
	Optional bool     `yaml:"optional,omitempty"`
}

type yamlLoop struct {
	StartIndex int `yaml:"startIndex"`
	EndIndex   int `yaml:"endIndex"`
	Count      int `yaml:"count"`
}

// duration is a wrapper for time.Duration that handles YAML parsing.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Loader reads activity definitions into a Registry.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new activity loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads every .yaml file under the activities directory of fsys.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, Dir)
	if err != nil {
		return fmt.Errorf("failed to read activities directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		if err := l.loadFile(fsys, path.Join(Dir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read activity file %s: %w", name, err)
	}

	var ya yamlActivity
	if err := yaml.Unmarshal(data, &ya); err != nil {
		return fmt.Errorf("failed to parse activity file %s: %w", name, err)
	}

	a := convertYAMLActivity(&ya)
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid activity file %s: %w", name, err)
	}

	l.registry.Register(a)
	return nil
}

func convertYAMLActivity(ya *yamlActivity) *Activity {
	a := &Activity{
		Name:        ya.Name,
		Description: ya.Description,
		Order:       ya.Order,
		Enabled:     ya.Enabled == nil || *ya.Enabled,
		Steps:       make([]Step, len(ya.Steps)),
	}

	for i, ys := range ya.Steps {
		a.Steps[i] = Step{
			Type:     StepType(ys.Type),
			URL:      ys.URL,
			Selector: ys.Selector,
			Script:   ys.Script,
			Duration: time.Duration(ys.Duration),
			Timeout:  time.Duration(ys.Timeout),
			Optional: ys.Optional,
		}
	}

	if ya.Loop != nil {
		a.Loop = &Loop{
			StartIndex: ya.Loop.StartIndex,
			EndIndex:   ya.Loop.EndIndex,
			Count:      ya.Loop.Count,
		}
	}

	return a
}
