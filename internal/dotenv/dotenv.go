// Package dotenv loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set.
package dotenv

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

// Load reads the file at path and sets each key that is not already present in
// the environment. If path does not exist, Load returns nil (silent ignore).
// An error is returned only for malformed lines or I/O failures on an existing file.
func Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	vars, err := parse(f)
	if err != nil {
		return fmt.Errorf("dotenv %s: %w", path, err)
	}
	for k, v := range vars {
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("dotenv setenv %s: %w", k, err)
		}
	}
	return nil
}

func parse(r io.Reader) (map[string]string, error) {
	return godotenv.Parse(r)
}
