package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile implements FileSystem.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader reads a Config from a TOML file and the environment.
type Loader struct {
	fs       FileSystem
	env      *EnvLoader
	required bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem sets the file system files are read from.
func WithFileSystem(fsys FileSystem) LoaderOption {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithEnv sets the environment loader. Nil disables environment overrides.
func WithEnv(env *EnvLoader) LoaderOption {
	return func(l *Loader) {
		l.env = env
	}
}

// WithRequired makes a missing file an error wrapping ErrFileNotFound.
func WithRequired(required bool) LoaderOption {
	return func(l *Loader) {
		l.required = required
	}
}

// NewLoader creates a loader reading from the OS file system with the
// default environment mapping.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:  OSFS{},
		env: NewEnvLoader(EnvPrefix),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the defaults overridden by the file at path and then by the
// environment, and validates the result. An empty path skips the file.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := l.fs.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if l.required {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := decode(path, bytes.NewReader(data), cfg); err != nil {
				return nil, err
			}
		}
	}

	if l.env != nil {
		if err := l.env.Apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration with a default loader.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// LoadFromReader decodes TOML from r over the defaults. The environment is
// not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode("<reader>", r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode parses TOML from r into cfg, rejecting unknown keys.
func decode(source string, r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		pe := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}

		var decodeErr *toml.DecodeError
		var strictErr *toml.StrictMissingError
		switch {
		case errors.As(err, &decodeErr):
			pe.Line, pe.Column = decodeErr.Position()
		case errors.As(err, &strictErr) && len(strictErr.Errors) > 0:
			pe.Line, pe.Column = strictErr.Errors[0].Position()
			pe.Message = "unknown key " + keyString(strictErr.Errors[0].Key())
		}
		return pe
	}
	return nil
}

func keyString(key toml.Key) string {
	var buf bytes.Buffer
	for i, part := range key {
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(part)
	}
	return buf.String()
}
