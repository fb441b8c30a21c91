package watch

import "time"

const (
	debounceConfigurationKeyConstant  = "debounce"
	configurationKeySeparatorConstant = "."
)

// CommandConfiguration captures persistent settings for the watch command.
type CommandConfiguration struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultCommandConfiguration returns baseline configuration values for the watch command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Debounce: DefaultDebounce}
}

// DefaultConfigurationValues exposes the defaults under rootKey for the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + debounceConfigurationKeyConstant: DefaultDebounce.String(),
	}
}

// Sanitize applies defaults to unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	if configuration.Debounce <= 0 {
		configuration.Debounce = DefaultDebounce
	}
	return configuration
}
