// Package profile persists the device identity each account presents per persona,
// so later runs reuse the same user agent and screen size.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"rewardsfarmer-go/domain/account"
)

const fileName = "profile.yaml"

// Profile is the persisted device identity.
type Profile struct {
	UserAgent       string  `yaml:"user_agent"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	ScaleFactor     float64 `yaml:"scale_factor"`
	Mobile          bool    `yaml:"mobile"`
	PlatformVersion string  `yaml:"platform_version"`
}

// Entry describes a stored profile for listing.
type Entry struct {
	ProfileID string
	Persona   string
	Dir       string
	Profile   Profile
}

// Store keeps profiles under root/<profile id>/<persona>/.
type Store struct {
	root   string
	logger *slog.Logger
	rng    *rand.Rand
}

// NewStore creates a profile store rooted at dir.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   root,
		logger: logger.With("component", "profile"),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Dir returns the browser user-data directory for the account and persona.
func (s *Store) Dir(acc account.Account, p account.Persona) string {
	return filepath.Join(s.root, acc.ProfileID(), p.String())
}

// LoadOrCreate returns the stored profile, generating and saving a new one on first use.
func (s *Store) LoadOrCreate(acc account.Account, p account.Persona) (Profile, error) {
	dir := s.Dir(acc, p)
	path := filepath.Join(dir, fileName)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var prof Profile
		if err := yaml.Unmarshal(data, &prof); err != nil {
			return Profile{}, fmt.Errorf("failed to parse profile %s: %w", path, err)
		}
		if prof.Width > 0 && prof.Height > 0 && prof.UserAgent != "" {
			return prof, nil
		}
		s.logger.Warn("Stored profile incomplete, regenerating", "path", path)
	case !errors.Is(err, fs.ErrNotExist):
		return Profile{}, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	prof := s.generate(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Profile{}, fmt.Errorf("failed to create profile directory: %w", err)
	}
	out, err := yaml.Marshal(prof)
	if err != nil {
		return Profile{}, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return Profile{}, fmt.Errorf("failed to write profile %s: %w", path, err)
	}

	s.logger.Info("Created device profile", "username", acc.Username, "persona", p.String(),
		"width", prof.Width, "height", prof.Height)
	return prof, nil
}

// List returns every stored profile sorted by profile id and persona.
func (s *Store) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "*", "*", fileName))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
		}
		var prof Profile
		if err := yaml.Unmarshal(data, &prof); err != nil {
			s.logger.Warn("Skipping unreadable profile", "path", path, "error", err)
			continue
		}
		dir := filepath.Dir(path)
		entries = append(entries, Entry{
			ProfileID: filepath.Base(filepath.Dir(dir)),
			Persona:   filepath.Base(dir),
			Dir:       dir,
			Profile:   prof,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ProfileID != entries[j].ProfileID {
			return entries[i].ProfileID < entries[j].ProfileID
		}
		return entries[i].Persona < entries[j].Persona
	})
	return entries, nil
}

func (s *Store) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// generate picks a random device size and user agent for the persona.
func (s *Store) generate(p account.Persona) Profile {
	if p == account.Mobile {
		h := s.intBetween(568, 1024)
		w := s.intBetween(320, min(576, int(float64(h)*0.7)))
		version := fmt.Sprintf("%d.0.0", s.intBetween(9, 13))
		return Profile{
			UserAgent:       mobileUserAgent(s.edgeVersion()),
			Width:           w,
			Height:          h,
			ScaleFactor:     []float64{2, 2.625, 3}[s.rng.IntN(3)],
			Mobile:          true,
			PlatformVersion: version,
		}
	}

	w := s.intBetween(1024, 2560)
	h := s.intBetween(768, min(1440, int(float64(w)*0.8)))
	return Profile{
		UserAgent:       desktopUserAgent(s.edgeVersion()),
		Width:           w,
		Height:          h,
		ScaleFactor:     1,
		PlatformVersion: fmt.Sprintf("%d.0.0", s.intBetween(1, 15)),
	}
}

func (s *Store) edgeVersion() edgeVersion {
	return edgeVersions[s.rng.IntN(len(edgeVersions))]
}
