// Package utils holds the configuration and logging plumbing shared by every subkeep command.
//
// ConfigurationLoader layers the embedded defaults, an optional config file,
// an optional .env file, and SUBKEEP_* environment variables through Viper.
// LoggerFactory turns the common log settings into zap loggers.
package utils
