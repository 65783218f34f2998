package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileNames are loaded in order. Variables already set are never
// overridden, so earlier files win over later ones.
var EnvFileNames = []string{".env.local", ".env"}

// LoadEnvFiles loads the env files found in each directory, in order.
// Missing files are skipped.
func LoadEnvFiles(dirs ...string) error {
	for _, dir := range dirs {
		for _, name := range EnvFileNames {
			path := filepath.Join(dir, name)
			if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}
	return nil
}
