// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "IDENTITYD_"

// Sources lists where configuration is read from.
type Sources struct {
	// Files are YAML files loaded in order.
	Files []string
	// EnvFile is an optional dotenv file with keys like HTTP_ADDR.
	EnvFile string
	// Flags are command-line flags; only flags listed in FlagKeys and
	// explicitly set by the user override other sources.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys.
	FlagKeys map[string]string
	// Environ overrides os.Environ for tests.
	Environ []string
}

// Load builds a validated Config from defaults and sources.
func Load(src Sources) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	for _, path := range src.Files {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	if src.EnvFile != "" {
		if err := loadEnvFile(k, src.EnvFile); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k, src.Environ); err != nil {
		return nil, err
	}

	if src.Flags != nil {
		if err := loadFlags(k, src.Flags, src.FlagKeys); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps HTTP_ADDR or IDENTITYD_HTTP_ADDR style names to http.addr.
// Only the first underscore separates the section.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.Replace(name, "_", ".", 1)
}

func loadEnvFile(k *koanf.Koanf, path string) error {
	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("source", "env file").
			With("path", path).
			Wrap(err)
	}
	parsed, err := dotenv.Parser().Unmarshal(raw)
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("source", "env file").
			With("path", path).
			Wrap(err)
	}

	values := make(map[string]any, len(parsed))
	for name, v := range parsed {
		values[envKey(name)] = v
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env file").Wrap(err)
	}
	return nil
}

func loadEnv(k *koanf.Koanf, environ []string) error {
	if environ == nil {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
		}
		return nil
	}

	values := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		values[envKey(name)] = value
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	return nil
}

func loadFlags(k *koanf.Koanf, fs *pflag.FlagSet, keys map[string]string) error {
	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := keys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}
	return nil
}
