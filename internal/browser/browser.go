// Package browser opens URLs in the user's default web browser, used to
// send the user to the Globus Auth authorize page during a native-app login.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// IsAvailable reports whether a browser can plausibly be opened on this
// system. Headless environments (no DISPLAY on Linux) return false so that
// callers can fall back to printing the URL.
func IsAvailable() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	for _, name := range []string{"xdg-open", "firefox", "chromium", "google-chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// OpenURL opens the URL in the default browser, falling back to
// platform-specific commands when the portable path fails.
func OpenURL(url string) error {
	if err := open.Run(url); err == nil {
		log.Debug("browser: opened URL via open-golang")
		return nil
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, name := range []string{"xdg-open", "firefox", "chromium", "google-chrome"} {
			if _, err := exec.LookPath(name); err == nil {
				cmd = exec.Command(name, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("browser: no suitable browser found")
		}
	default:
		return fmt.Errorf("browser: unsupported operating system %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: failed to start %s: %w", cmd.Path, err)
	}
	return nil
}
