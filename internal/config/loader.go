package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all ForgeFF settings.
const envPrefix = "FORGEFF"

// newViper builds a pre-configured Viper instance: YAML file type, FORGEFF_
// env prefix, automatic env binding, and a key replacer that maps "." to "_"
// so that nested keys like "database.host" resolve to FORGEFF_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges any FORGEFF_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result. It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from FORGEFF_* environment variables,
// with no config file required. This is the preferred loading strategy for
// containerised deployments.
//
//	FORGEFF_<SECTION>_<FIELD>   e.g. FORGEFF_DATABASE_HOST, FORGEFF_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
