// Package auth resolves the Gemini API key and classifies provider failures.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".noksha"
	credentialFile = "credentials"
)

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. Owner-only file at ~/.noksha/credentials
func GetAPIKey() (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := getFromFile()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from credentials file")
		return key, nil
	}

	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: "API key not found. Set GEMINI_API_KEY or write it to ~/" + credentialDir + "/" + credentialFile,
		Err:     err,
	}
}

// getFromFile reads the key from the credentials file. The file must not be
// readable by group or others.
func getFromFile() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(credPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("credentials file not found at %s", credPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if mode := fi.Mode().Perm(); mode&0077 != 0 {
		log.Warn().
			Str("credentials_file", credPath).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Credentials file has insecure permissions (should be 0600); skipping")
		return "", fmt.Errorf("credentials file %s has insecure permissions %04o", credPath, mode)
	}

	data, err := os.ReadFile(credPath)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}
