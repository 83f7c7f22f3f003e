// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	migrateDB      = pflag.Bool("migrate", true, "Runs database migrations on startup")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers = []string{"sqlite", "postgres"}
	defaultAllowed = []string{"image/png", "image/jpeg", "image/jpg"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.client_origin", "host_client_origin")
	v.BindEnv("host.domain", "host_domain")

	v.BindEnv("oauth.client_id", "OAUTH_CLIENT_ID")
	v.BindEnv("oauth.client_secret", "OAUTH_CLIENT_SECRET")
	v.BindEnv("oauth.redirect_url", "OAUTH_REDIRECT_URL")

	v.BindEnv("session.secret", "SESSION_SECRET")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.allowed_types", "upload_allowed_types")

	v.BindEnv("s3.bucket", "BUCKET_NAME")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.endpoint", "s3_endpoint")
	v.BindEnv("s3.access_key_id", "s3_access_key_id")
	v.BindEnv("s3.secret_access_key", "s3_secret_access_key")
	v.BindEnv("s3.public_base", "s3_public_base")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 3001)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.client_origin", "http://localhost:5173")
	v.SetDefault("host.ssl_enabled", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("upload.max_size", 25)
	v.SetDefault("upload.allowed_types", defaultAllowed)

	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.public_base", "https://storage.googleapis.com")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		// Everything can come from env variables so a missing
		// config.toml is fine
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetString("oauth.client_id") == "" {
		return errors.New("oauth client id can't be empty")
	}

	if v.GetString("oauth.client_secret") == "" {
		return errors.New("oauth client secret can't be empty")
	}

	if v.GetString("oauth.redirect_url") == "" {
		v.Set("oauth.redirect_url", fmt.Sprintf("http://%s:%d/login/google/callback", v.GetString("host.domain"), v.GetInt("host.port")))
	}

	if v.GetString("session.secret") == "" {
		return errors.New("session secret can't be empty")
	}

	if v.GetString("s3.bucket") == "" {
		return errors.New("bucket can't be empty")
	}

	if !slices.Contains(validDBDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.driver") == "postgres" && v.GetString("database.dsn") == "" {
		return errors.New("postgres requires a database.dsn")
	}

	if len(v.GetStringSlice("upload.allowed_types")) == 0 {
		zap.L().Warn("No upload.allowed_types specified, declared content types won't be checked")
	}

	v.Set("database.migrate", *migrateDB)
	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
