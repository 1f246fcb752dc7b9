package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix namespaces widelog environment overrides.
	EnvPrefix = "WIDELOG_"

	maxConfigFileSize = 1 << 20
)

// sections maps environment-variable prefixes to config sections,
// longest first so ERROR_FILE and WIDE_EVENT win over their shorter
// cousins.
var sections = []string{"error_file", "wide_event", "console", "file"}

// Load builds a Config in precedence order: defaults, then the YAML
// file at configPath (skipped when empty, treated as absent when
// missing or malformed), then WIDELOG_* environment variables.
//
// Examples of environment mapping:
//
//	WIDELOG_GLOBAL_LEVEL            -> global_level
//	WIDELOG_FILE_PATH               -> file.path
//	WIDELOG_ERROR_FILE_ENABLED      -> error_file.enabled
//	WIDELOG_WIDE_EVENT_SAMPLING_RATE -> wide_event.sampling_rate
func Load(configPath string) (*Config, error) {
	return load(configPath, os.Stderr)
}

func load(configPath string, diag io.Writer) (*Config, error) {
	k := koanf.New(".")

	// Defaults are the base koanf layer so the file and env layers only
	// override the keys they actually set.
	if err := k.Load(structs.Provider(NewDefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if content, ok := readConfigFile(configPath, diag); ok {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				// A malformed file merges nothing, so the defaults layer
				// stands. Not a fatal error.
				fmt.Fprintf(diag, "widelog: config file %s is malformed, using defaults: %v\n", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		fmt.Fprintf(diag, "widelog: config unmarshal failed, using defaults: %v\n", err)
		cfg = NewDefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(diag, "widelog: config invalid, using defaults: %v\n", err)
		cfg = NewDefaultConfig()
	}
	return cfg, nil
}

// readConfigFile reads configPath, reporting problems to diag and
// returning ok=false so the caller falls through to defaults.
func readConfigFile(path string, diag io.Writer) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(diag, "widelog: cannot stat config file %s: %v\n", path, err)
		}
		return nil, false
	}
	if info.Size() > maxConfigFileSize {
		fmt.Fprintf(diag, "widelog: config file %s exceeds %d bytes, ignoring\n", path, maxConfigFileSize)
		return nil, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(diag, "widelog: cannot read config file %s: %v\n", path, err)
		return nil, false
	}
	return content, true
}

// envKeyToPath converts WIDELOG_SECTION_FIELD_NAME to section.field_name.
// Section names containing underscores (error_file, wide_event) are
// matched explicitly; anything without a known section stays flat
// (global_level).
func envKeyToPath(key string) string {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, section := range sections {
		prefix := section + "_"
		if strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) {
			return section + "." + strings.TrimPrefix(lower, prefix)
		}
	}
	return lower
}
