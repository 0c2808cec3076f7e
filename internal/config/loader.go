package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvFileKey overrides the dotenv file read by dev builds.
const EnvFileKey = "PTBSCOPE_ENV_FILE"

// LoadFromEnv reads the process environment. Dev builds first merge the
// dotenv file, without overriding variables already set.
func LoadFromEnv() (Config, error) {
	path := envFile(FromEnviron())
	if err := loadDotEnv(path); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return Load(FromEnviron())
}

func envFile(source EnvSource) string {
	if path, ok := source.Lookup(EnvFileKey); ok && strings.TrimSpace(path) != "" {
		return strings.TrimSpace(path)
	}
	return ".env"
}

// fileExists reports whether a dotenv file is present; a missing file is
// not an error.
func fileExists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
