package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by the tool.
const (
	EnvRateLimitMirror = "SBOM_RATE_LIMIT_MVNREPO_SEC"
	EnvMirrorAccessKey = "SBOM_MIRROR_ACCESS_KEY"
	EnvMirrorSecretKey = "SBOM_MIRROR_SECRET_KEY"
)

// DefaultMirrorInterval is the fallback mirror throttle when
// SBOM_RATE_LIMIT_MVNREPO_SEC is unset or invalid.
const DefaultMirrorInterval = 500 * time.Millisecond

// LoadEnv loads .env-style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
// With no paths, ".env" in the working directory is tried.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Env holds the values taken from the environment.
type Env struct {
	MirrorInterval  time.Duration
	MirrorAccessKey string
	MirrorSecretKey string
}

// ReadEnv reads Env through getenv; a nil getenv means os.Getenv.
func ReadEnv(getenv func(string) string) Env {
	if getenv == nil {
		getenv = os.Getenv
	}
	return Env{
		MirrorInterval:  parseSeconds(getenv(EnvRateLimitMirror), DefaultMirrorInterval),
		MirrorAccessKey: getenv(EnvMirrorAccessKey),
		MirrorSecretKey: getenv(EnvMirrorSecretKey),
	}
}

// parseSeconds parses a non-negative decimal number of seconds.
func parseSeconds(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}
