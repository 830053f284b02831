package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

func TestClamp(t *testing.T) {
	got := Clamp(models.ReadingSettings{FontSize: 40, LineHeight: 0.5, LetterSpacing: 1, Theme: "neon"})
	assert.Equal(t, models.ReadingSettings{FontSize: 28, LineHeight: 1.2, LetterSpacing: 0.3, Theme: models.ThemeDefault}, got)

	got = Clamp(models.ReadingSettings{FontSize: 4, LineHeight: 1.84, LetterSpacing: -1, Theme: models.ThemeDark})
	assert.Equal(t, models.ReadingSettings{FontSize: 12, LineHeight: 1.8, LetterSpacing: 0, Theme: models.ThemeDark}, got)

	assert.Equal(t, DefaultReading, Clamp(DefaultReading))
	for _, p := range Profiles {
		assert.Equal(t, p.Settings, Clamp(p.Settings), p.Key)
	}
}

func TestPalette(t *testing.T) {
	assert.Equal(t, "#f4ecd8", PaletteFor(models.ThemeSepia).Background)
	assert.Equal(t, "#ffff00", PaletteFor(models.ThemeHighContrast).Text)
	assert.Equal(t, PaletteFor(models.ThemeDefault), PaletteFor("missing"))
	for _, theme := range models.Themes {
		assert.NotEmpty(t, PaletteFor(theme).Name)
	}
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	t.Run("missing file yields defaults", func(t *testing.T) {
		s, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultReading, s.Reading())
		assert.Empty(t, s.RememberedEmail())
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("settings persist across opens", func(t *testing.T) {
		s, err := Open(path)
		require.NoError(t, err)

		stored, err := s.SetReading(models.ReadingSettings{FontSize: 30, LineHeight: 2, LetterSpacing: 0.1, Theme: models.ThemeDark})
		require.NoError(t, err)
		assert.Equal(t, 28, stored.FontSize)

		reopened, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, stored, reopened.Reading())
	})

	t.Run("profiles", func(t *testing.T) {
		s, err := Open(path)
		require.NoError(t, err)

		got, err := s.ApplyProfile("LOWVISION")
		require.NoError(t, err)
		assert.Equal(t, 22, got.FontSize)
		assert.Equal(t, models.ThemeHighContrast, got.Theme)

		_, err = s.ApplyProfile("nope")
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
		assert.Equal(t, got, s.Reading())
	})

	t.Run("remember email", func(t *testing.T) {
		s, err := Open(path)
		require.NoError(t, err)

		require.NoError(t, s.RecordLogin(true, " reader@example.com "))
		assert.Equal(t, "reader@example.com", s.RememberedEmail())

		require.NoError(t, s.SetRemember(false, ""))
		assert.Empty(t, s.RememberedEmail())
		assert.Equal(t, "reader@example.com", s.Get().Remember.Email)

		require.NoError(t, s.SetRemember(true, ""))
		assert.Equal(t, "reader@example.com", s.RememberedEmail())

		require.NoError(t, s.RecordLogin(false, "reader@example.com"))
		assert.Equal(t, RememberEmail{}, s.Get().Remember)
	})

	t.Run("session token", func(t *testing.T) {
		s, err := Open(path)
		require.NoError(t, err)

		require.NoError(t, s.SetSession("tok", "reader@example.com"))
		reopened, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, "tok", reopened.Get().Session.Token)

		require.NoError(t, reopened.ClearSession())
		assert.Empty(t, reopened.Get().Session.Token)
	})
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("reading = [[["), 0o600))

	_, err := Open(path)
	assert.ErrorIs(t, err, shared.ErrInvalidConfig)
}
