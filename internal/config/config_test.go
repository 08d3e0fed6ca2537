package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	appErr "printum/pkg/errors"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Port)
	}
	if cfg.Environment != EnvDevelopment {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if cfg.Engine.Binary != "/opt/curaengine/bin/CuraEngine" {
		t.Fatalf("binary = %q", cfg.Engine.Binary)
	}
	if cfg.MaxUploadBytes() != 40*1024*1024 {
		t.Fatalf("max upload bytes = %d", cfg.MaxUploadBytes())
	}
	if cfg.SliceTimeout() != 600*time.Second {
		t.Fatalf("slice timeout = %v", cfg.SliceTimeout())
	}
	if got := cfg.AllowedExtensions().List(); !reflect.DeepEqual(got, []string{"stl", "3mf", "obj", "amf"}) {
		t.Fatalf("extensions = %v", got)
	}
	if cfg.Upload.Dir != "/tmp/printum/uploads" {
		t.Fatalf("upload dir = %q", cfg.Upload.Dir)
	}
	if len(cfg.BaseArgs()) != 0 {
		t.Fatalf("base args = %v, want empty", cfg.BaseArgs())
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "console" {
		t.Fatalf("logger = %+v", cfg.Logger)
	}
	if cfg.Engine.MaxConcurrent != 0 {
		t.Fatalf("max concurrent = %d, want unbounded", cfg.Engine.MaxConcurrent)
	}
	if cfg.WriteTimeout() != 300*time.Second {
		t.Fatalf("write timeout = %v", cfg.WriteTimeout())
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	cfg, err := Load(Options{LookupEnv: envMap(map[string]string{
		"PORT":                     "9090",
		"APP_ENV":                  "production",
		"CURA_ENGINE_BIN":          "/usr/local/bin/CuraEngine",
		"CURA_ENGINE_ARGS":         `-v --config "my profile.json"`,
		"MAX_MODEL_FILE_SIZE_MB":   "0.5",
		"SLICE_TIMEOUT_SECONDS":    "1.5",
		"ALLOWED_MODEL_EXTENSIONS": " STL, .3mf ,,stl",
		"UPLOAD_DIR":               "/data/uploads",
		"MAX_CONCURRENT_SLICES":    "2",
		"WRITE_TIMEOUT_SECONDS":    "0",
	})})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr() != ":9090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production mode")
	}
	if cfg.MaxUploadBytes() != 524288 {
		t.Fatalf("max upload bytes = %d, want 524288", cfg.MaxUploadBytes())
	}
	if cfg.SliceTimeout() != 1500*time.Millisecond {
		t.Fatalf("slice timeout = %v", cfg.SliceTimeout())
	}
	if got := cfg.BaseArgs(); !reflect.DeepEqual(got, []string{"-v", "--config", "my profile.json"}) {
		t.Fatalf("base args = %v", got)
	}
	if got := cfg.AllowedExtensions().List(); !reflect.DeepEqual(got, []string{"stl", "3mf"}) {
		t.Fatalf("extensions = %v", got)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "json" {
		t.Fatalf("production logger = %+v", cfg.Logger)
	}
	if cfg.Engine.MaxConcurrent != 2 {
		t.Fatalf("max concurrent = %d", cfg.Engine.MaxConcurrent)
	}
	if cfg.WriteTimeout() != 0 {
		t.Fatalf("write timeout = %v, want disabled", cfg.WriteTimeout())
	}
}

func TestLoadNodeEnvAlias(t *testing.T) {
	cfg, err := Load(Options{LookupEnv: envMap(map[string]string{"NODE_ENV": "test"})})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != EnvTest {
		t.Fatalf("environment = %q, want test", cfg.Environment)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "negative size", env: map[string]string{"MAX_MODEL_FILE_SIZE_MB": "-1"}},
		{name: "zero timeout", env: map[string]string{"SLICE_TIMEOUT_SECONDS": "0"}},
		{name: "malformed port", env: map[string]string{"PORT": "eighty"}},
		{name: "zero port", env: map[string]string{"PORT": "0"}},
		{name: "unknown environment", env: map[string]string{"APP_ENV": "staging"}},
		{name: "empty extensions", env: map[string]string{"ALLOWED_MODEL_EXTENSIONS": " , "}},
		{name: "empty binary", env: map[string]string{"CURA_ENGINE_BIN": ""}},
		{name: "negative concurrency", env: map[string]string{"MAX_CONCURRENT_SLICES": "-3"}},
		{name: "negative write timeout", env: map[string]string{"WRITE_TIMEOUT_SECONDS": "-1"}},
		{name: "malformed bool", env: map[string]string{"METRICS_ENABLED": "sometimes"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(Options{LookupEnv: envMap(tc.env)})
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !appErr.Is(err, appErr.ConfigInvalid) {
				t.Fatalf("error code = %v, want ConfigInvalid (%v)", appErr.GetCode(err), err)
			}
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "slice.yaml")
	yamlBody := "port: 7000\nengine:\n  binary: /yaml/CuraEngine\n  timeoutSeconds: 30\nupload:\n  dir: /yaml/uploads\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	dotenvPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenvPath, []byte("PORT=7100\nUPLOAD_DIR=/dotenv/uploads\n"), 0o644); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	cfg, err := Load(Options{
		ConfigFile: yamlPath,
		DotEnvFile: dotenvPath,
		LookupEnv:  envMap(map[string]string{"PORT": "7200"}),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 7200 {
		t.Fatalf("port = %d, want env value 7200", cfg.Port)
	}
	if cfg.Upload.Dir != "/dotenv/uploads" {
		t.Fatalf("upload dir = %q, want dotenv value", cfg.Upload.Dir)
	}
	if cfg.Engine.Binary != "/yaml/CuraEngine" {
		t.Fatalf("binary = %q, want yaml value", cfg.Engine.Binary)
	}
	if cfg.SliceTimeout() != 30*time.Second {
		t.Fatalf("timeout = %v, want yaml value", cfg.SliceTimeout())
	}
	if cfg.MaxUploadBytes() != 40*1024*1024 {
		t.Fatalf("max upload bytes = %d, want default", cfg.MaxUploadBytes())
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(Options{
		DotEnvFile: filepath.Join(t.TempDir(), "missing.env"),
		LookupEnv:  envMap(nil),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	_, err := Load(Options{
		ConfigFile: filepath.Join(t.TempDir(), "missing.yaml"),
		LookupEnv:  envMap(nil),
	})
	if !appErr.Is(err, appErr.ConfigLoadFail) {
		t.Fatalf("error = %v, want ConfigLoadFail", err)
	}
}

func TestBaseArgsReturnsCopy(t *testing.T) {
	cfg, err := Load(Options{LookupEnv: envMap(map[string]string{"CURA_ENGINE_ARGS": "-j profile.json"})})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	args := cfg.BaseArgs()
	args[0] = "mutated"
	if cfg.BaseArgs()[0] != "-j" {
		t.Fatal("BaseArgs must not expose internal storage")
	}
}
