// Package config loads livecue configuration with Viper.
//
// Values come from cmd/<service>/config.yml, then a .env file loaded with
// godotenv, then environment variables prefixed with the service name
// (LIVECUE_GENERATION_RETRIES overrides generation.retries). Load applies
// defaults and validates `validate` struct tags before calling the
// config's own Validate.
package config
