package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// AppDirName is the per-user state directory under $HOME.
const AppDirName = ".spoolkeeper"

// ExpandHomePath replaces a leading "~" with the user's home directory and
// cleans the result. Blank input stays blank.
func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return filepath.Clean(p)
		}
		if p == "~" {
			return filepath.Clean(home)
		}
		return filepath.Clean(filepath.Join(home, strings.TrimPrefix(p, "~/")))
	}
	return filepath.Clean(p)
}

// AppDir returns ~/.spoolkeeper, or a relative .spoolkeeper when the home
// directory is unknown.
func AppDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return AppDirName
	}
	return filepath.Join(home, AppDirName)
}

// ResolveIn expands p and anchors relative results at base.
func ResolveIn(base, p string) string {
	p = ExpandHomePath(p)
	if p == "" || filepath.IsAbs(p) || strings.TrimSpace(base) == "" {
		return p
	}
	return filepath.Join(ExpandHomePath(base), p)
}
