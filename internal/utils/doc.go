// Package utils exposes the ambient helpers every rtfr command shares.
//
// ConfigurationLoader layers the embedded defaults, an optional YAML file and
// RTFR_* environment variables through Viper; LoggerFactory builds the zap
// diagnostic and console loggers; CommandContextAccessor carries resolved
// values such as the workspace root through cobra command contexts.
package utils
