package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/kbindex/internal/logger"
)

// LoadDotEnv loads environment variables from the given .env files, in
// order. Missing files are skipped. Variables already set in the process
// environment are never overridden, so an exported OPENAI_API_KEY wins over
// one in a file.
func LoadDotEnv(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		logger.Debug("loaded environment from %s", p)
		loaded = append(loaded, p)
	}
	return loaded, nil
}
