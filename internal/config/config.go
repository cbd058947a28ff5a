package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string // postgres URL, or a sqlite file ("file:epos.db", "*.db")
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	AWSRegion        string
	UserPoolID       string
	UserPoolClientID string
	GraphQLEndpoint  string
	PlanAPIURL       string

	// AccessPasswordHash is the bcrypt hash of the shared access password.
	// Empty disables the password screen.
	AccessPasswordHash string
}

// amplifyOutputs is the subset of amplify_outputs.json used for Cognito and
// AppSync coordinates.
type amplifyOutputs struct {
	Auth struct {
		AWSRegion        string `json:"aws_region"`
		UserPoolID       string `json:"user_pool_id"`
		UserPoolClientID string `json:"user_pool_client_id"`
	} `json:"auth"`
	Data struct {
		URL       string `json:"url"`
		AWSRegion string `json:"aws_region"`
	} `json:"data"`
}

// Load loads config from env and optional .env file. Cognito and AppSync
// settings fall back to amplify_outputs.json (AMPLIFY_OUTPUTS overrides the path).
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if dbURL == "" && env != "production" {
		dbURL = "file:epos.db"
	}

	cfg := &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		AWSRegion:           viper.GetString("AWS_REGION"),
		UserPoolID:          viper.GetString("COGNITO_USER_POOL_ID"),
		UserPoolClientID:    viper.GetString("COGNITO_CLIENT_ID"),
		GraphQLEndpoint:     viper.GetString("APPSYNC_GRAPHQL_URL"),
		PlanAPIURL:          viper.GetString("PLAN_API_URL"),
		AccessPasswordHash:  viper.GetString("ACCESS_PASSWORD_HASH"),
	}

	path := viper.GetString("AMPLIFY_OUTPUTS")
	if path == "" {
		path = "amplify_outputs.json"
	}
	if err := cfg.applyAmplifyOutputs(path); err != nil {
		return nil, err
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	return cfg, nil
}

// applyAmplifyOutputs fills empty Cognito/AppSync settings from the file.
// A missing file is not an error.
func (c *Config) applyAmplifyOutputs(path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read amplify outputs")
	}
	var out amplifyOutputs
	if err := json.Unmarshal(b, &out); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	if c.AWSRegion == "" {
		c.AWSRegion = out.Auth.AWSRegion
	}
	if c.AWSRegion == "" {
		c.AWSRegion = out.Data.AWSRegion
	}
	if c.UserPoolID == "" {
		c.UserPoolID = out.Auth.UserPoolID
	}
	if c.UserPoolClientID == "" {
		c.UserPoolClientID = out.Auth.UserPoolClientID
	}
	if c.GraphQLEndpoint == "" {
		c.GraphQLEndpoint = out.Data.URL
	}
	return nil
}
