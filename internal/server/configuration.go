package server

import (
	"strings"
)

const (
	addressConfigurationKeyConstant            = "address"
	storageConfigurationKeyConstant            = "storage"
	databasePathConfigurationKeyConstant       = "database_path"
	redisAddressConfigurationKeyConstant       = "redis_address"
	tokenRatePerMinuteConfigurationKeyConstant = "token_rate_per_minute"
	maxRecordsPerPathConfigurationKeyConstant  = "max_records_per_path"
	configurationKeySeparatorConstant          = "."

	defaultAddressConstant            = ":8080"
	defaultDatabasePathConstant       = "rtf-readme-db"
	defaultRedisAddressConstant       = "localhost:6379"
	defaultTokenRatePerMinuteConstant = 10
	// DefaultMaxRecordsPerPath bounds how many revisions of one README the server keeps per contributor.
	DefaultMaxRecordsPerPath = 50
)

// StorageBackend names a document storage engine.
type StorageBackend string

// Supported storage backends.
const (
	StorageBackendBadger StorageBackend = "badger"
	StorageBackendRedis  StorageBackend = "redis"
)

// StorageBackendChoices lists the accepted storage values in display order.
func StorageBackendChoices() []string {
	return []string{string(StorageBackendBadger), string(StorageBackendRedis)}
}

// CommandConfiguration captures persistent settings for the serve command.
type CommandConfiguration struct {
	Address            string `mapstructure:"address"`
	Storage            string `mapstructure:"storage"`
	DatabasePath       string `mapstructure:"database_path"`
	RedisAddress       string `mapstructure:"redis_address"`
	TokenRatePerMinute int    `mapstructure:"token_rate_per_minute"`
	MaxRecordsPerPath  int    `mapstructure:"max_records_per_path"`
}

// DefaultCommandConfiguration returns baseline configuration values for the serve command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Address:            defaultAddressConstant,
		Storage:            string(StorageBackendBadger),
		DatabasePath:       defaultDatabasePathConstant,
		RedisAddress:       defaultRedisAddressConstant,
		TokenRatePerMinute: defaultTokenRatePerMinuteConstant,
		MaxRecordsPerPath:  DefaultMaxRecordsPerPath,
	}
}

// DefaultConfigurationValues exposes the defaults under rootKey for the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + addressConfigurationKeyConstant:            defaults.Address,
		prefix + storageConfigurationKeyConstant:            defaults.Storage,
		prefix + databasePathConfigurationKeyConstant:       defaults.DatabasePath,
		prefix + redisAddressConfigurationKeyConstant:       defaults.RedisAddress,
		prefix + tokenRatePerMinuteConfigurationKeyConstant: defaults.TokenRatePerMinute,
		prefix + maxRecordsPerPathConfigurationKeyConstant:  defaults.MaxRecordsPerPath,
	}
}

// Sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Address = strings.TrimSpace(sanitized.Address)
	if len(sanitized.Address) == 0 {
		sanitized.Address = defaults.Address
	}
	sanitized.Storage = strings.ToLower(strings.TrimSpace(sanitized.Storage))
	if len(sanitized.Storage) == 0 {
		sanitized.Storage = defaults.Storage
	}
	sanitized.DatabasePath = strings.TrimSpace(sanitized.DatabasePath)
	if len(sanitized.DatabasePath) == 0 {
		sanitized.DatabasePath = defaults.DatabasePath
	}
	sanitized.RedisAddress = strings.TrimSpace(sanitized.RedisAddress)
	if len(sanitized.RedisAddress) == 0 {
		sanitized.RedisAddress = defaults.RedisAddress
	}
	if sanitized.TokenRatePerMinute <= 0 {
		sanitized.TokenRatePerMinute = defaults.TokenRatePerMinute
	}
	if sanitized.MaxRecordsPerPath <= 0 {
		sanitized.MaxRecordsPerPath = defaults.MaxRecordsPerPath
	}
	return sanitized
}
