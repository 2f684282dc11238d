package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvService reads process environment after merging dotenv files.
type EnvService struct {
	appEnv string
	loaded []string
}

// NewEnvService loads <dir>/.env and then <dir>/.env.<APP_ENV> (APP_ENV
// defaults to "dev"). Variables already set in the process win over .env;
// the environment-specific file overrides both. Missing files are fine.
func NewEnvService(dir string) (*EnvService, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	e := &EnvService{appEnv: appEnv}

	base := filepath.Join(dir, ".env")
	if err := godotenv.Load(base); err == nil {
		e.loaded = append(e.loaded, base)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", base, err)
	}

	envFile := filepath.Join(dir, ".env."+appEnv)
	if err := godotenv.Overload(envFile); err == nil {
		e.loaded = append(e.loaded, envFile)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	return e, nil
}

func (e *EnvService) AppEnv() string {
	return e.appEnv
}

// Loaded lists the dotenv files that were found.
func (e *EnvService) Loaded() []string {
	return e.loaded
}

// Get reads key after the dotenv files have been merged into the process.
func (e *EnvService) Get(key string) string {
	return os.Getenv(key)
}
