package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PRIVATISE_"

// EnvLoader applies environment variable overrides.
type EnvLoader struct {
	prefix  string
	lookup  func(string) (string, bool)
	mapping map[string]string // variable suffix -> setting path
}

// NewEnvLoader creates an environment loader reading variables that start
// with prefix from the process environment.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		lookup:  os.LookupEnv,
		mapping: defaultEnvMapping(),
	}
}

// NewEnvLoaderWithLookup creates an environment loader that reads
// variables through lookup.
func NewEnvLoaderWithLookup(prefix string, lookup func(string) (string, bool)) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.lookup = lookup
	return l
}

// defaultEnvMapping maps variable names, without the prefix, to settings.
func defaultEnvMapping() map[string]string {
	return map[string]string{
		"LOG_LEVEL":      "log.level",
		"LOG_FORMAT":     "log.format",
		"LOG_TIMESTAMPS": "log.timestamps",
		"TIMEOUT":        "script.timeout",
		"WATCH_DEBOUNCE": "script.watch_debounce",
	}
}

// Variables returns the full names of the variables the loader reads,
// sorted.
func (l *EnvLoader) Variables() []string {
	names := make([]string, 0, len(l.mapping))
	for suffix := range l.mapping {
		names = append(names, l.prefix+suffix)
	}
	sort.Strings(names)
	return names
}

// Apply overrides cfg with every mapped variable that is set. Empty values
// are treated as set.
func (l *EnvLoader) Apply(cfg *Config) error {
	for _, name := range l.Variables() {
		val, ok := l.lookup(name)
		if !ok {
			continue
		}
		path := l.mapping[strings.TrimPrefix(name, l.prefix)]
		if err := set(cfg, path, val); err != nil {
			return fmt.Errorf("environment %s: %w", name, err)
		}
	}
	return nil
}

// set assigns a string value to the setting at path.
func set(cfg *Config, path, val string) error {
	switch path {
	case "log.level":
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(val))
	case "log.format":
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(val))
	case "log.timestamps":
		b, err := parseBool(val)
		if err != nil {
			return &ValidationError{Path: path, Message: err.Error()}
		}
		cfg.Log.Timestamps = b
	case "script.timeout":
		d, err := time.ParseDuration(val)
		if err != nil {
			return &ValidationError{Path: path, Message: err.Error()}
		}
		cfg.Script.Timeout = Duration(d)
	case "script.watch_debounce":
		d, err := time.ParseDuration(val)
		if err != nil {
			return &ValidationError{Path: path, Message: err.Error()}
		}
		cfg.Script.WatchDebounce = Duration(d)
	default:
		return fmt.Errorf("unknown setting %q", path)
	}
	return nil
}

// parseBool accepts the spellings strconv.ParseBool does plus yes/no and
// on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
