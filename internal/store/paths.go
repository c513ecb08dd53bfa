package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-user and per-project state directory name.
const DirName = ".growthsim"

// GlobalPath returns the path to the global .growthsim directory.
// On Unix: ~/.growthsim
// On Windows: %USERPROFILE%\.growthsim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the .growthsim directory under projectRoot. The run
// archive and the journal live there unless configured otherwise.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}
