// Package browser launches the user's web browser for sign-in and help links.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedScheme is returned for anything but http and https URLs.
var ErrUnsupportedScheme = errors.New("browser: only http and https URLs can be opened")

// Open opens rawURL in the user's default browser. When $BROWSER is set it
// names the program to run instead of the platform opener.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	name, args, err := command(runtime.GOOS, os.Getenv("BROWSER"), u.String())
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// command returns the program and arguments that open target on goos.
func command(goos, override, target string) (string, []string, error) {
	if fields := strings.Fields(override); len(fields) > 0 {
		return fields[0], append(fields[1:], target), nil
	}
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	default:
		return "", nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}
