// Package prefs stores device-local state that exists outside any account: the remembered sign-in
// email, reading accessibility settings, and the CLI's session token. It is readable before sign-in.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// Reading setting bounds.
const (
	MinFontSize      = 12
	MaxFontSize      = 28
	MinLineHeight    = 1.2
	MaxLineHeight    = 2.5
	MaxLetterSpacing = 0.3
)

// DefaultReading is used until the reader changes anything.
var DefaultReading = models.ReadingSettings{FontSize: 16, LineHeight: 1.6, LetterSpacing: 0, Theme: models.ThemeDefault}

// Palette is a theme's colors.
type Palette struct {
	Name       string
	Background string
	Text       string
}

var palettes = map[models.Theme]Palette{
	models.ThemeDefault:      {Name: "Default", Background: "#ffffff", Text: "#111827"},
	models.ThemeSepia:        {Name: "Sepia", Background: "#f4ecd8", Text: "#5b4636"},
	models.ThemeDark:         {Name: "Dark", Background: "#1f2937", Text: "#f9fafb"},
	models.ThemeHighContrast: {Name: "High Contrast", Background: "#000000", Text: "#ffff00"},
}

// PaletteFor returns the colors of theme, falling back to the default theme.
func PaletteFor(theme models.Theme) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[models.ThemeDefault]
}

// Profile is a named preset of reading settings.
type Profile struct {
	Key         string
	Name        string
	Description string
	Settings    models.ReadingSettings
}

// Profiles in display order.
var Profiles = []Profile{
	{
		Key: "dyslexia", Name: "Dyslexia Support", Description: "Easier to read fonts and spacing",
		Settings: models.ReadingSettings{FontSize: 18, LineHeight: 2.0, LetterSpacing: 0.12, Theme: models.ThemeSepia},
	},
	{
		Key: "lowVision", Name: "Low Vision", Description: "Large text and high contrast",
		Settings: models.ReadingSettings{FontSize: 22, LineHeight: 1.8, LetterSpacing: 0.05, Theme: models.ThemeHighContrast},
	},
	{
		Key: "focus", Name: "Focus Mode", Description: "Reduce distractions",
		Settings: models.ReadingSettings{FontSize: 16, LineHeight: 1.6, LetterSpacing: 0, Theme: models.ThemeDefault},
	},
}

// LookupProfile finds a profile by key, case-insensitively.
func LookupProfile(key string) (Profile, bool) {
	for _, p := range Profiles {
		if strings.EqualFold(p.Key, key) {
			return p, true
		}
	}
	return Profile{}, false
}

// Clamp forces settings into their supported ranges. Line height is kept to one decimal.
func Clamp(s models.ReadingSettings) models.ReadingSettings {
	s.FontSize = min(max(s.FontSize, MinFontSize), MaxFontSize)
	s.LineHeight = math.Round(min(max(s.LineHeight, MinLineHeight), MaxLineHeight)*10) / 10
	s.LetterSpacing = math.Round(min(max(s.LetterSpacing, 0), MaxLetterSpacing)*100) / 100
	if _, ok := palettes[s.Theme]; !ok {
		s.Theme = models.ThemeDefault
	}
	return s
}

// RememberEmail pre-fills the sign-in form.
type RememberEmail struct {
	Enabled bool   `toml:"enabled"`
	Email   string `toml:"email"`
}

// SessionToken is the CLI's signed-in state.
type SessionToken struct {
	Token string `toml:"token"`
	Email string `toml:"email"`
}

// Prefs is the file's content.
type Prefs struct {
	Remember RememberEmail          `toml:"remember_email"`
	Reading  models.ReadingSettings `toml:"reading"`
	Session  SessionToken           `toml:"session"`
}

// Store is a prefs file guarded for concurrent use. Every setter writes the file.
type Store struct {
	path string

	mu    sync.Mutex
	prefs Prefs
}

// Open loads path, expanding "~". A missing file yields defaults.
func Open(path string) (*Store, error) {
	expanded, err := shared.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: expanded, prefs: Prefs{Reading: DefaultReading}}

	data, err := os.ReadFile(expanded)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prefs: %w", err)
	}

	if err := toml.Unmarshal(data, &s.prefs); err != nil {
		return nil, fmt.Errorf("%w: prefs file %s: %v", shared.ErrInvalidConfig, expanded, err)
	}
	s.prefs.Reading = Clamp(s.prefs.Reading)
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Get returns a copy of the prefs.
func (s *Store) Get() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Store) Reading() models.ReadingSettings {
	return s.Get().Reading
}

// SetReading clamps and stores settings, returning what was stored.
func (s *Store) SetReading(settings models.ReadingSettings) (models.ReadingSettings, error) {
	settings = Clamp(settings)
	return settings, s.update(func(p *Prefs) { p.Reading = settings })
}

// ApplyProfile replaces the reading settings with a preset.
func (s *Store) ApplyProfile(key string) (models.ReadingSettings, error) {
	p, ok := LookupProfile(key)
	if !ok {
		return models.ReadingSettings{}, fmt.Errorf("%w: unknown profile %q", shared.ErrInvalidArgument, key)
	}
	return s.SetReading(p.Settings)
}

// RememberedEmail returns the email to pre-fill, or "".
func (s *Store) RememberedEmail() string {
	p := s.Get()
	if !p.Remember.Enabled {
		return ""
	}
	return p.Remember.Email
}

// SetRemember toggles the remember flag. Turning it on with a non-blank email records the email;
// turning it off keeps the email until the next sign-in.
func (s *Store) SetRemember(enabled bool, email string) error {
	email = strings.TrimSpace(email)
	return s.update(func(p *Prefs) {
		p.Remember.Enabled = enabled
		if enabled && email != "" {
			p.Remember.Email = email
		}
	})
}

// RecordLogin applies the remember choice after a successful sign-in.
func (s *Store) RecordLogin(remember bool, email string) error {
	return s.update(func(p *Prefs) {
		if remember {
			p.Remember = RememberEmail{Enabled: true, Email: strings.TrimSpace(email)}
		} else {
			p.Remember = RememberEmail{}
		}
	})
}

// SetSession stores the CLI session token.
func (s *Store) SetSession(token, email string) error {
	return s.update(func(p *Prefs) { p.Session = SessionToken{Token: token, Email: email} })
}

func (s *Store) ClearSession() error {
	return s.update(func(p *Prefs) { p.Session = SessionToken{} })
}

func (s *Store) update(fn func(*Prefs)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	fn(&next)
	if err := write(s.path, next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}

// write replaces path via a temp file in the same directory.
func write(path string, p Prefs) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create prefs file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(p); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace prefs: %w", err)
	}
	return nil
}
