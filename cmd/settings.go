package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/prefs"
	"github.com/desertthunder/readx/internal/shared"
)

type settingsOutput struct {
	Reading         models.ReadingSettings `json:"reading"`
	Background      string                 `json:"background"`
	Text            string                 `json:"text"`
	RememberEmail   bool                   `json:"rememberEmail"`
	RememberedEmail string                 `json:"rememberedEmail,omitempty"`
}

// SettingsShow prints the device-local preferences.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}

	p := store.Get()
	palette := prefs.PaletteFor(p.Reading.Theme)
	out := settingsOutput{
		Reading:         p.Reading,
		Background:      palette.Background,
		Text:            palette.Text,
		RememberEmail:   p.Remember.Enabled,
		RememberedEmail: store.RememberedEmail(),
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	return r.printReading(p.Reading, out)
}

func (r *Runner) printReading(s models.ReadingSettings, out settingsOutput) error {
	palette := prefs.PaletteFor(s.Theme)
	r.writePlain("Font size:      %dpx\n", s.FontSize)
	r.writePlain("Line height:    %.1f\n", s.LineHeight)
	r.writePlain("Letter spacing: %.2fem\n", s.LetterSpacing)
	r.writePlain("Theme:          %s (%s on %s)\n", palette.Name, palette.Text, palette.Background)
	if out.RememberEmail {
		return r.writePlain("Remember email: %s\n", out.RememberedEmail)
	}
	return r.writePlain("Remember email: off\n")
}

// SettingsSet changes only the flags that were given; values are clamped to their ranges.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}

	s := store.Reading()
	if cmd.Bool("reset") {
		s = prefs.DefaultReading
	}
	if cmd.IsSet("font-size") {
		s.FontSize = int(cmd.Int("font-size"))
	}
	if cmd.IsSet("line-height") {
		s.LineHeight = cmd.Float("line-height")
	}
	if cmd.IsSet("letter-spacing") {
		s.LetterSpacing = cmd.Float("letter-spacing")
	}
	if cmd.IsSet("theme") {
		theme, err := parseTheme(cmd.String("theme"))
		if err != nil {
			return err
		}
		s.Theme = theme
	}

	saved, err := store.SetReading(s)
	if err != nil {
		return err
	}
	r.writePlain("✓ Reading settings saved\n")
	p := store.Get()
	return r.printReading(saved, settingsOutput{RememberEmail: p.Remember.Enabled, RememberedEmail: store.RememberedEmail()})
}

func parseTheme(name string) (models.Theme, error) {
	names := make([]string, len(models.Themes))
	for i, t := range models.Themes {
		if strings.EqualFold(string(t), name) {
			return t, nil
		}
		names[i] = string(t)
	}
	return "", fmt.Errorf("%w: unknown theme %q (choose %s)", shared.ErrInvalidArgument, name, strings.Join(names, ", "))
}

// SettingsProfile applies a named accessibility preset.
func (r *Runner) SettingsProfile(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if _, ok := prefs.LookupProfile(name); !ok {
		r.writePlain("Profiles:\n")
		for _, p := range prefs.Profiles {
			r.writePlain("  %-10s %s: %s\n", p.Key, p.Name, p.Description)
		}
		if name == "" {
			return nil
		}
		return fmt.Errorf("%w: unknown profile %q", shared.ErrInvalidArgument, name)
	}

	store, err := r.preferences()
	if err != nil {
		return err
	}
	saved, err := store.ApplyProfile(name)
	if err != nil {
		return err
	}
	r.writePlain("✓ Applied profile %s\n", name)
	p := store.Get()
	return r.printReading(saved, settingsOutput{RememberEmail: p.Remember.Enabled, RememberedEmail: store.RememberedEmail()})
}

// SettingsRemember toggles pre-filling the sign-in email.
func (r *Runner) SettingsRemember(ctx context.Context, cmd *cli.Command) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}

	if cmd.Bool("off") {
		if err := store.SetRemember(false, ""); err != nil {
			return err
		}
		return r.writePlain("✓ Email will not be remembered\n")
	}

	email := cmd.String("email")
	if email == "" {
		email = store.Get().Session.Email
	}
	if err := store.SetRemember(true, email); err != nil {
		return err
	}
	if remembered := store.RememberedEmail(); remembered != "" {
		return r.writePlain("✓ Remembering %s\n", remembered)
	}
	return r.writePlain("✓ Your email will be remembered at next sign-in\n")
}
