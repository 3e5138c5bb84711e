package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

const (
	envAPIKey = "VOICERAG_API_KEY"
	envAPIURL = "VOICERAG_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

var apiKeyPattern = regexp.MustCompile(`^vrg_[0-9a-fA-F]{64}$`)

// GlobalConfig is the credential file written by "voicerag auth login".
type GlobalConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "voicerag"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// IsValidAPIKey checks the vrg_ + 64 hex chars token format.
func IsValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// CredentialSource represents where credentials came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// ResolveCredentials walks flag, environment, then global config. The API
// key and URL are resolved independently and the URL falls back to the
// default. The source reported is where the key came from.
func ResolveCredentials(flagAPIKey, flagAPIURL string) (CredentialSource, string, string, error) {
	source := SourceNone
	apiKey, apiURL := flagAPIKey, flagAPIURL
	if apiKey != "" {
		source = SourceFlag
	}

	if apiKey == "" {
		if apiKey = os.Getenv(envAPIKey); apiKey != "" {
			source = SourceEnv
		}
	}
	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}

	if apiKey == "" || apiURL == "" {
		global, err := LoadGlobalConfig()
		if err != nil {
			return SourceNone, "", "", err
		}
		if global != nil {
			if apiKey == "" && global.APIKey != "" {
				apiKey = global.APIKey
				source = SourceGlobalConfig
			}
			if apiURL == "" {
				apiURL = global.APIURL
			}
		}
	}

	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return source, apiKey, apiURL, nil
}
