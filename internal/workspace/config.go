package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the workspace configuration file at the workspace root.
	ConfigFileName = ".rtfrrc"
	// CurrentConfigVersion is written into every generated configuration.
	CurrentConfigVersion = 1

	configFilePermissionsConstant  = 0o644
	httpSchemeConstant             = "http"
	httpsSchemeConstant            = "https"
	schemeSeparatorConstant        = "://"
	cachePathSegmentConstant       = "cache"
	pathSeparatorConstant          = "/"
	yamlIndentConstant             = 2
	serverURLTemplateConstant      = "%w: %q"
	boundaryCommitTemplateConstant = "%w: %q"
)

var boundaryCommitExpression = regexp.MustCompile(`^[0-9a-zA-Z]{40}$`)

// DefaultReadmePatterns selects README files anywhere in the workspace.
func DefaultReadmePatterns() []string {
	return []string{"**/README.md"}
}

// DefaultIgnorePatterns skips git metadata and installed node modules.
func DefaultIgnorePatterns() []string {
	return []string{".git", "**/node_modules/**", "**/node_modules/**/.*"}
}

// Config is the content of .rtfrrc. JSON files written by earlier tools parse as YAML unchanged.
type Config struct {
	Version int      `yaml:"version,omitempty" json:"version,omitempty"`
	Init    string   `yaml:"init,omitempty" json:"init,omitempty"`
	Server  string   `yaml:"server,omitempty" json:"server,omitempty"`
	Token   string   `yaml:"token,omitempty" json:"token,omitempty"`
	Readme  []string `yaml:"readme" json:"readme"`
	Ignore  []string `yaml:"ignore" json:"ignore"`
}

// DefaultConfig returns the configuration used when a workspace has none.
func DefaultConfig() Config {
	return Config{Readme: DefaultReadmePatterns(), Ignore: DefaultIgnorePatterns()}
}

// HasRemote reports whether acknowledgements live on a server.
func (config Config) HasRemote() bool {
	return len(config.Server) > 0 && len(config.Token) > 0
}

// CacheEndpoint returns the server URL holding this workspace's acknowledgements.
func (config Config) CacheEndpoint() (string, bool) {
	if !config.HasRemote() {
		return "", false
	}
	return strings.TrimRight(config.Server, pathSeparatorConstant) + pathSeparatorConstant + cachePathSegmentConstant + pathSeparatorConstant + url.PathEscape(config.Token), true
}

// ParseConfig decodes and validates configuration data. Absent glob lists take their defaults;
// explicitly empty lists are kept.
func ParseConfig(source string, data []byte) (Config, error) {
	config := Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		if decodeError := yaml.Unmarshal(data, &config); decodeError != nil {
			return DefaultConfig(), ConfigurationError{Path: source, Cause: decodeError}
		}
	}
	if config.Readme == nil {
		config.Readme = DefaultReadmePatterns()
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnorePatterns()
	}
	config.Token = strings.TrimSpace(config.Token)

	if len(strings.TrimSpace(config.Init)) > 0 {
		boundary, boundaryError := ValidateBoundaryCommit(config.Init)
		if boundaryError != nil {
			return DefaultConfig(), ConfigurationError{Path: source, Cause: boundaryError}
		}
		config.Init = boundary
	} else {
		config.Init = ""
	}

	if len(strings.TrimSpace(config.Server)) > 0 {
		serverURL, serverError := NormalizeServerURL(config.Server)
		if serverError != nil {
			return DefaultConfig(), ConfigurationError{Path: source, Cause: serverError}
		}
		config.Server = serverURL
	} else {
		config.Server = ""
	}
	return config, nil
}

// ConfigPath returns the configuration file path of a workspace.
func ConfigPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ConfigFileName)
}

// LoadConfig reads the workspace configuration. The returned Config is usable even when an error is returned:
// a missing or malformed file yields DefaultConfig together with a ConfigurationError.
func LoadConfig(workspaceRoot string) (Config, error) {
	if len(strings.TrimSpace(workspaceRoot)) == 0 {
		return DefaultConfig(), ConfigurationError{Path: ConfigFileName, Cause: ErrWorkspaceRootRequired}
	}
	configPath := ConfigPath(workspaceRoot)
	data, readError := os.ReadFile(configPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return DefaultConfig(), ConfigurationError{Path: configPath, Cause: ErrConfigurationMissing}
		}
		return DefaultConfig(), ConfigurationError{Path: configPath, Cause: readError}
	}
	return ParseConfig(configPath, data)
}

// Encode renders the configuration as YAML.
func (config Config) Encode() ([]byte, error) {
	config.Version = CurrentConfigVersion
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(config); encodeError != nil {
		return nil, encodeError
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, closeError
	}
	return buffer.Bytes(), nil
}

// WriteConfig writes the configuration file of a workspace and returns its path.
func WriteConfig(workspaceRoot string, config Config) (string, error) {
	if len(strings.TrimSpace(workspaceRoot)) == 0 {
		return "", ErrWorkspaceRootRequired
	}
	encoded, encodeError := config.Encode()
	if encodeError != nil {
		return "", encodeError
	}
	configPath := ConfigPath(workspaceRoot)
	if writeError := os.WriteFile(configPath, encoded, configFilePermissionsConstant); writeError != nil {
		return "", writeError
	}
	return configPath, nil
}

// ValidateBoundaryCommit accepts a full 40 character commit hash and lower-cases it.
func ValidateBoundaryCommit(value string) (string, error) {
	trimmedValue := strings.TrimSpace(value)
	if !boundaryCommitExpression.MatchString(trimmedValue) {
		return "", fmt.Errorf(boundaryCommitTemplateConstant, ErrInvalidBoundaryCommit, value)
	}
	return strings.ToLower(trimmedValue), nil
}

// NormalizeServerURL accepts an http or https URL, or a bare host[:port] that is given an http scheme.
func NormalizeServerURL(value string) (string, error) {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return "", fmt.Errorf(serverURLTemplateConstant, ErrInvalidServerURL, value)
	}
	if !strings.Contains(trimmedValue, schemeSeparatorConstant) {
		trimmedValue = httpSchemeConstant + schemeSeparatorConstant + trimmedValue
	}

	parsedURL, parseError := url.Parse(trimmedValue)
	if parseError != nil || len(parsedURL.Host) == 0 {
		return "", fmt.Errorf(serverURLTemplateConstant, ErrInvalidServerURL, value)
	}
	if parsedURL.Scheme != httpSchemeConstant && parsedURL.Scheme != httpsSchemeConstant {
		return "", fmt.Errorf(serverURLTemplateConstant, ErrInvalidServerURL, value)
	}
	return strings.TrimRight(parsedURL.String(), pathSeparatorConstant), nil
}
