// Package config loads the application configuration.
//
// It uses Viper with defaults taken from `default` struct tags, an optional
// .env file loaded through godotenv, and environment overrides named
// SECTION_KEY (for example CACHE_CASING=snake_case).
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP port and API key
//   - Database: driver (mysql or sqlite) and connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - Cache: key casing, date format and model file
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := cfg.Cache.Options()
package config
