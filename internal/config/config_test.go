package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func noEnv(string) (string, bool) { return "", false }

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.LogLevel() != log.InfoLevel {
		t.Errorf("LogLevel() = %v, want info", cfg.LogLevel())
	}
	if cfg.Script.Timeout.Std() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Script.Timeout.Std())
	}
}

func TestLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[log]
level = "debug"
format = "json"
timestamps = true

[script]
timeout = "1.5s"
watch_debounce = "50ms"
`)

	l := NewLoader(WithFileSystem(memfs), WithEnv(NewEnvLoaderWithLookup(EnvPrefix, noEnv)))
	cfg, err := l.Load("/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel() != log.DebugLevel {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	if cfg.LogFormatter() != log.JSONFormatter {
		t.Errorf("LogFormatter() = %v, want JSON", cfg.LogFormatter())
	}
	if !cfg.Log.Timestamps {
		t.Error("Timestamps = false, want true")
	}
	if cfg.Script.Timeout.Std() != 1500*time.Millisecond {
		t.Errorf("Timeout = %v, want 1.5s", cfg.Script.Timeout.Std())
	}
	if cfg.Script.WatchDebounce.Std() != 50*time.Millisecond {
		t.Errorf("WatchDebounce = %v, want 50ms", cfg.Script.WatchDebounce.Std())
	}
}

func TestLoader_PartialFileKeepsDefaults(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[script]
timeout = "10s"
`)

	cfg, err := NewLoader(WithFileSystem(memfs), WithEnv(nil)).Load("/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != FormatText {
		t.Errorf("Log = %+v, want defaults", cfg.Log)
	}
	if cfg.Script.WatchDebounce != Default().Script.WatchDebounce {
		t.Errorf("WatchDebounce = %v, want default", cfg.Script.WatchDebounce.Std())
	}
}

func TestLoader_MissingFile(t *testing.T) {
	memfs := NewMemFS()

	cfg, err := NewLoader(WithFileSystem(memfs), WithEnv(nil)).Load("/missing.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Log.Level)
	}

	_, err = NewLoader(WithFileSystem(memfs), WithEnv(nil), WithRequired(true)).Load("/missing.toml")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Load() error = %v, want ErrFileNotFound", err)
	}
}

func TestLoader_ParseError(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
		contains string
	}{
		{"syntax", "[log]\nlevel = \n", 0, ""},
		{"unknown key", "[log]\nlevel = \"info\"\ncolour = true\n", 3, "log.colour"},
		{"bad duration", "[script]\ntimeout = \"soon\"\n", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memfs := NewMemFS()
			memfs.AddFile("/config.toml", tt.content)

			_, err := NewLoader(WithFileSystem(memfs), WithEnv(nil)).Load("/config.toml")
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Load() error = %v, want *ParseError", err)
			}
			if pe.Path != "/config.toml" {
				t.Errorf("Path = %q", pe.Path)
			}
			if tt.wantLine > 0 && pe.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", pe.Line, tt.wantLine)
			}
			if tt.contains != "" && !strings.Contains(pe.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", pe.Error(), tt.contains)
			}
		})
	}
}

func TestLoader_Validation(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[log]
level = "loud"
format = "xml"
`)

	_, err := NewLoader(WithFileSystem(memfs), WithEnv(nil)).Load("/config.toml")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Load() error = %v, want ErrValidationFailed", err)
	}
	for _, path := range []string{"log.level", "log.format"} {
		if !strings.Contains(err.Error(), path) {
			t.Errorf("error %q does not mention %s", err, path)
		}
	}
}

func TestEnvLoader_Apply(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[log]
level = "warn"
`)

	env := NewEnvLoaderWithLookup(EnvPrefix, envMap(map[string]string{
		"PRIVATISE_LOG_LEVEL":      "DEBUG",
		"PRIVATISE_LOG_TIMESTAMPS": "yes",
		"PRIVATISE_TIMEOUT":        "250ms",
	}))

	cfg, err := NewLoader(WithFileSystem(memfs), WithEnv(env)).Load("/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug (environment beats file)", cfg.Log.Level)
	}
	if !cfg.Log.Timestamps {
		t.Error("Timestamps = false, want true")
	}
	if cfg.Script.Timeout.Std() != 250*time.Millisecond {
		t.Errorf("Timeout = %v, want 250ms", cfg.Script.Timeout.Std())
	}
}

func TestEnvLoader_BadValue(t *testing.T) {
	env := NewEnvLoaderWithLookup(EnvPrefix, envMap(map[string]string{
		"PRIVATISE_TIMEOUT": "forever",
	}))

	err := env.Apply(Default())
	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("Apply() error = %v, want ErrValidationFailed", err)
	}
	if !strings.Contains(err.Error(), "PRIVATISE_TIMEOUT") {
		t.Errorf("error %q does not name the variable", err)
	}
}

func TestEnvLoader_Variables(t *testing.T) {
	got := NewEnvLoader(EnvPrefix).Variables()
	want := []string{
		"PRIVATISE_LOG_FORMAT",
		"PRIVATISE_LOG_LEVEL",
		"PRIVATISE_LOG_TIMESTAMPS",
		"PRIVATISE_TIMEOUT",
		"PRIVATISE_WATCH_DEBOUNCE",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Variables() = %v, want %v", got, want)
	}
}

func TestLoad_OSFS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[log]\nformat = \"logfmt\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(WithEnv(nil)).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogFormatter() != log.LogfmtFormatter {
		t.Errorf("LogFormatter() = %v, want logfmt", cfg.LogFormatter())
	}
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("[script]\nwatch_debounce = \"1s\"\n"))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Script.WatchDebounce.Std() != time.Second {
		t.Errorf("WatchDebounce = %v, want 1s", cfg.Script.WatchDebounce.Std())
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte(" 2m ")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	text, _ := d.MarshalText()
	if string(text) != "2m0s" {
		t.Errorf("MarshalText() = %s, want 2m0s", text)
	}
}
