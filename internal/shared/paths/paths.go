package paths

import (
	"os"
	"path/filepath"
)

const appName = "brother-label"

// GetDataDir returns the directory holding the database and stored labels.
// BROTHER_LABEL_DATA_DIR overrides the per-user config location.
func GetDataDir() string {
	if dir := os.Getenv("BROTHER_LABEL_DATA_DIR"); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, appName)
	}
	return filepath.Join(".", "."+appName)
}

func GetDBPath() string {
	return filepath.Join(GetDataDir(), "local.db")
}

// GetOutputDir は印刷したラベル画像の保存先
func GetOutputDir() string {
	return filepath.Join(GetDataDir(), "labels")
}

// EnsureDataDirs creates the data and output directories.
func EnsureDataDirs() error {
	for _, dir := range []string{GetDataDir(), GetOutputDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
