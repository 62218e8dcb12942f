package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv loads environment variables from path, or from .env when
// path is empty. A missing default .env is not an error; a missing
// explicit file is. Existing process environment variables win.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}
