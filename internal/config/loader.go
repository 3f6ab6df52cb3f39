package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the config file looked up in the working directory.
const ConfigFileName = "etl.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "etl.yml"

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: ETL_WAREHOUSE__TABLE sets warehouse.table.
const EnvPrefix = "ETL_"

// findConfigFile finds the config file to use.
// Priority: explicit path > etl.yaml > etl.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey maps ETL_SOURCES__CUSTOMERS__PATH to sources.customers.path.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Load reads configuration from defaults, cfgFile (or etl.yaml when empty),
// the environment and the explicitly set flags in flags, then validates it.
// Flag names use dots for nesting and dashes for underscores, e.g.
// --warehouse.table or --log.level.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("Load: failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("Load: error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("Load: failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("Load: failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("Load: unable to decode config: %w", err)
	}
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandEnv expands ${VAR} references in connection strings and secrets so
// credentials can stay out of the config file.
func (c *Config) expandEnv() {
	for _, s := range []*SourceConfig{&c.Sources.Customers, &c.Sources.Transactions} {
		s.DSN = os.ExpandEnv(s.DSN)
		s.URL = os.ExpandEnv(s.URL)
		for name, v := range s.Headers {
			s.Headers[name] = os.ExpandEnv(v)
		}
	}
	c.Warehouse.DSN = os.ExpandEnv(c.Warehouse.DSN)
	c.RunStore.DSN = os.ExpandEnv(c.RunStore.DSN)
	c.API.APIKey = os.ExpandEnv(c.API.APIKey)
}
