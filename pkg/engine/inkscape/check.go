package inkscape

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrNotFound is returned by Available when the executable cannot be run.
var ErrNotFound = errors.New("inkscape not found")

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// Status reports the availability of the engine.
type Status struct {
	Command   string
	Available bool
	Version   string
	Detail    string
}

// Check probes the executable and never fails; the result describes what
// was found.
func (b *Backend) Check(ctx context.Context) Status {
	status := Status{Command: b.binary()}
	version, err := b.Available(ctx)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Available = true
	status.Version = version
	return status
}

// Available runs "<binary> --version" and returns the reported version. An
// error wrapping ErrNotFound means the engine cannot be used.
func (b *Backend) Available(ctx context.Context) (string, error) {
	bin := b.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("%w: %q is not on PATH", ErrNotFound, bin)
	}
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s --version: %v", ErrNotFound, bin, err)
	}
	version := versionPattern.FindString(string(out))
	if version == "" {
		return "", fmt.Errorf("%w: unrecognized version output %q", ErrNotFound, firstLine(string(out)))
	}
	return version, nil
}

// InstallHint returns platform specific installation guidance for goos
// (a runtime.GOOS value).
func InstallHint(goos string) string {
	switch goos {
	case "linux":
		return "install it with your package manager, e.g. sudo apt install inkscape"
	case "darwin":
		return "install it with Homebrew: brew install --cask inkscape"
	case "windows":
		return "install it with Chocolatey: choco install inkscape"
	default:
		return "download it from https://inkscape.org/release/"
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
