// Package secrets resolves credentials from environment references or
// mounted secret files (Docker/Kubernetes secrets). Secret values are never logged.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
)

const (
	// maxSecretFileSize limits secret file reads; secrets are tokens, not documents
	maxSecretFileSize = 64 * 1024
)

// ExpandString resolves ${VAR} and ${VAR:-default} references in s.
//
// Examples:
//   - "literal" -> "literal"
//   - "${GEMINI_API_KEY}" -> value of GEMINI_API_KEY
//   - "${TOKEN:-fallback}" -> value of TOKEN or "fallback" if unset
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret from path. Surrounding whitespace is trimmed and files
// readable by group or others produce a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fileError(errors.NewStd("secret file path is empty"), path)
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fileError(err, cleanPath)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(errors.NewStd("secret path is not a regular file"), cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", fileError(errors.NewStd("secret file is too large"), cleanPath)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by group or others",
			logger.String("path", cleanPath),
			logger.String("mode", perm.String()))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fileError(err, cleanPath)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fileError(errors.NewStd("secret file is empty"), cleanPath)
	}
	return secret, nil
}

// Resolve picks the secret from filePath when set, otherwise expands value.
//
//   - Resolve("", "literal") -> "literal"
//   - Resolve("", "${TOKEN}") -> expand TOKEN
//   - Resolve("/run/secrets/gemini", "ignored") -> file contents
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	return ExpandString(value)
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Build()
}
