package audit

import (
	"runtime"
	"strings"

	"github.com/temirov/rtfr/internal/history"
	"github.com/temirov/rtfr/internal/readme"
)

const (
	historyLimitConfigurationKeyConstant       = "history_limit"
	readmeHistoryLimitConfigurationKeyConstant = "readme_history_limit"
	workersConfigurationKeyConstant            = "workers"
	dedupConfigurationKeyConstant              = "dedup"
	identityConfigurationKeyConstant           = "identity"
	configurationKeySeparatorConstant          = "."
)

// CommandConfiguration captures persistent settings for the check command.
type CommandConfiguration struct {
	HistoryLimit       int    `mapstructure:"history_limit"`
	ReadmeHistoryLimit int    `mapstructure:"readme_history_limit"`
	Workers            int    `mapstructure:"workers"`
	Dedup              string `mapstructure:"dedup"`
	Identity           string `mapstructure:"identity"`
}

// DefaultCommandConfiguration returns baseline configuration values for the check command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		HistoryLimit:       history.DefaultWindowLimit,
		ReadmeHistoryLimit: readme.DefaultPathHistoryLimit,
		Workers:            defaultWorkerCount(),
		Dedup:              string(DedupGranularityReadme),
		Identity:           string(IdentityMatchingExact),
	}
}

// DefaultConfigurationValues exposes the defaults under rootKey for the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + historyLimitConfigurationKeyConstant:       defaults.HistoryLimit,
		prefix + readmeHistoryLimitConfigurationKeyConstant: defaults.ReadmeHistoryLimit,
		prefix + workersConfigurationKeyConstant:            defaults.Workers,
		prefix + dedupConfigurationKeyConstant:              defaults.Dedup,
		prefix + identityConfigurationKeyConstant:           defaults.Identity,
	}
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	if sanitized.HistoryLimit <= 0 {
		sanitized.HistoryLimit = defaults.HistoryLimit
	}
	if sanitized.ReadmeHistoryLimit <= 0 {
		sanitized.ReadmeHistoryLimit = defaults.ReadmeHistoryLimit
	}
	if sanitized.Workers <= 0 {
		sanitized.Workers = defaults.Workers
	}
	sanitized.Dedup = strings.ToLower(strings.TrimSpace(sanitized.Dedup))
	if len(sanitized.Dedup) == 0 {
		sanitized.Dedup = defaults.Dedup
	}
	sanitized.Identity = strings.ToLower(strings.TrimSpace(sanitized.Identity))
	if len(sanitized.Identity) == 0 {
		sanitized.Identity = defaults.Identity
	}

	return sanitized
}

func defaultWorkerCount() int {
	return runtime.NumCPU()
}
