package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tubekeeper/internal/flagx"
	"github.com/dmitrijs2005/tubekeeper/internal/timex"
)

// JsonConfig mirrors Config for decoding. Durations accept "15m" strings or
// integer nanoseconds through timex.Duration.
type JsonConfig struct {
	HTTPAddress                  string         `json:"http_address"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordCost                 int            `json:"password_cost"`
	CookieSecure                 *bool          `json:"cookie_secure"`
	UploadDir                    string         `json:"upload_dir"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson overlays the file named by -c/-config onto config. Keys absent
// from the file leave the current values in place.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.UploadDir, c.UploadDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PasswordCost != 0 {
		config.PasswordCost = c.PasswordCost
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
