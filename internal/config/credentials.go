package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials is the provider login read once at startup.
type Credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// DotEnvPaths are tried in order by LoadDotEnv; the first one found wins.
var DotEnvPaths = []string{".env", "../.env"}

// LoadDotEnv loads the first .env file found into the process environment.
// Variables already set are not overridden. Returns the loaded path, or "".
func LoadDotEnv() string {
	for _, p := range DotEnvPaths {
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadCredentials reads {user, password} from path. COD_USER and
// COD_PASSWORD override the file; when both are set the file is optional.
func LoadCredentials(path string) (Credentials, error) {
	var c Credentials
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("parse credentials %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return c, fmt.Errorf("read credentials: %w", err)
		}
	}
	if v := os.Getenv("COD_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("COD_PASSWORD"); v != "" {
		c.Password = v
	}
	c.User = strings.TrimSpace(c.User)
	if c.User == "" || c.Password == "" {
		return c, fmt.Errorf("credentials not found: create %s with {\"user\", \"password\"} or set COD_USER and COD_PASSWORD", path)
	}
	return c, nil
}
