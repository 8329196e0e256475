package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"speechlens/log"
)

const FileName = "preferences.json"

type fileFormat struct {
	DarkMode *bool `json:"dark_mode"`
}

// Store holds user preferences that outlive a session. It is read once by
// Load and written through on every change.
type Store struct {
	mu       sync.Mutex
	path     string
	darkMode bool
}

// Load reads dir/preferences.json. When no dark-mode value was ever saved,
// systemDark decides.
func Load(dir string, systemDark func() bool) (*Store, error) {
	s := &Store{path: filepath.Join(dir, FileName)}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.darkMode = systemDark()
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warnf("ignoring unreadable %s: %v", s.path, err)
		s.darkMode = systemDark()
		return s, nil
	}
	if f.DarkMode == nil {
		s.darkMode = systemDark()
	} else {
		s.darkMode = *f.DarkMode
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// SetDarkMode persists v before returning. On a write error the in-memory
// value still changes so the session keeps the user's choice.
func (s *Store) SetDarkMode(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = v
	return s.save()
}

func (s *Store) ToggleDarkMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	return s.darkMode, s.save()
}

func (s *Store) save() error {
	dark := s.darkMode
	data, err := json.MarshalIndent(fileFormat{DarkMode: &dark}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
