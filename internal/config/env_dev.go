//go:build dev

package config

import (
	"github.com/joho/godotenv"
)

func loadDotEnv(path string) error {
	ok, err := fileExists(path)
	if err != nil || !ok {
		return err
	}
	return godotenv.Load(path)
}
