// Package auth locates and validates the Gemini API key.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// EnvAPIKey is the environment variable holding the Gemini API key.
const EnvAPIKey = "GEMINI_API_KEY"

const (
	credentialDir  = ".archiflow"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"
)

// ErrNoKey is returned when no source yields an API key.
var ErrNoKey = errors.New("API key not found: set GEMINI_API_KEY or store it GPG-encrypted at ~/.archiflow/credentials.gpg")

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. the explicit key, typically from configuration
//  2. GEMINI_API_KEY environment variable
//  3. GPG-encrypted file at ~/.archiflow/credentials.gpg
func GetAPIKey(explicit string) (string, error) {
	if explicit != "" {
		log.Debug().Msg("Using API key from configuration")
		return explicit, nil
	}
	if key := os.Getenv(EnvAPIKey); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, nil
	}

	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", &ValidationError{Type: ErrTypeNoKey, Message: "no API key available", Err: ErrNoKey}
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}
	if passphrasePath, ok := findPassphraseFile(); ok {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
	}
	args = append(args, credPath)

	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// findPassphraseFile looks for an owner-only passphrase file next to the
// executable, then in the working directory.
func findPassphraseFile() (string, bool) {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, passphraseFile)
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mode := fi.Mode().Perm(); mode&0077 != 0 {
			log.Warn().
				Str("passphrase_file", path).
				Str("permissions", fmt.Sprintf("%04o", mode)).
				Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			continue
		}
		return path, true
	}
	return "", false
}
