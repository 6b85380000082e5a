package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddress             string         `json:"http_address"`
	DatabaseDSN             string         `json:"database_dsn"`
	RedisAddress            string         `json:"redis_address"`
	RedisKeyPrefix          string         `json:"redis_key_prefix"`
	LockoutThreshold        int            `json:"lockout_threshold"`
	SecretKey               string         `json:"secret_key"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	GoogleClientID          string         `json:"google_client_id"`
	GoogleClientSecret      string         `json:"google_client_secret"`
	GoogleRedirectURL       string         `json:"google_redirect_url"`
	FrontendURL             string         `json:"frontend_url"`
	AdminToken              string         `json:"admin_token"`
	PasswordAlgorithm       string         `json:"password_algorithm"`
	LogLevel                string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config. Keys missing
// from the file leave the current value in place. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddress, c.RedisAddress)
	setString(&config.RedisKeyPrefix, c.RedisKeyPrefix)
	if c.LockoutThreshold != 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.AdminToken, c.AdminToken)
	setString(&config.PasswordAlgorithm, c.PasswordAlgorithm)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
