package shared

import (
	"errors"
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() {
		getRuntime, startCommand = origRuntime, origStart
	})

	var started []string
	startCommand = func(cmd *exec.Cmd) error {
		started = cmd.Args
		return nil
	}

	t.Run("linux uses xdg-open", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		if err := OpenBrowser("https://books.google.com/books?id=abc"); err != nil {
			t.Fatalf("OpenBrowser() error = %v", err)
		}
		if len(started) == 0 || started[0] != "xdg-open" {
			t.Errorf("expected xdg-open, got %v", started)
		}
	})

	t.Run("rejects non web links", func(t *testing.T) {
		for _, link := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "books.google.com"} {
			if err := OpenBrowser(link); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("OpenBrowser(%q) expected ErrInvalidArgument, got %v", link, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
