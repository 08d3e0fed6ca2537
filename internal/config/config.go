// Package config loads and validates the slice service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	appErr "printum/pkg/errors"
	"printum/pkg/utils/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	bytesPerMB = 1024 * 1024

	defaultPort                   = 8080
	defaultEngineBinary           = "/opt/curaengine/bin/CuraEngine"
	defaultMaxFileSizeMB          = 40
	defaultSliceTimeoutSeconds    = 600
	defaultAllowedExtensions      = "stl,3mf,obj,amf"
	defaultUploadDir              = "/tmp/printum/uploads"
	defaultReadTimeoutSeconds     = 300
	defaultWriteTimeoutSeconds    = 300
	defaultShutdownTimeoutSeconds = 10
	defaultCORSOrigins            = "*"
)

// EngineConfig holds the slicing engine invocation settings.
type EngineConfig struct {
	Binary         string  `yaml:"binary" validate:"required"`
	Args           string  `yaml:"args"`
	TimeoutSeconds float64 `yaml:"timeoutSeconds" validate:"gt=0"`
	// MaxConcurrent caps concurrent engine processes; 0 leaves them unbounded.
	MaxConcurrent int `yaml:"maxConcurrent" validate:"gte=0"`
	// AdmissionWaitSeconds bounds how long a job waits for a slot; 0 waits for the request lifetime.
	AdmissionWaitSeconds float64 `yaml:"admissionWaitSeconds" validate:"gte=0"`
}

// UploadConfig holds model upload limits and storage location.
type UploadConfig struct {
	Dir               string  `yaml:"dir" validate:"required"`
	MaxFileSizeMB     float64 `yaml:"maxFileSizeMB" validate:"gt=0"`
	AllowedExtensions string  `yaml:"allowedExtensions" validate:"required"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ReadTimeoutSeconds     float64 `yaml:"readTimeoutSeconds" validate:"gte=0"`
	// WriteTimeoutSeconds bounds sending the G-code once slicing is done; 0 disables it.
	WriteTimeoutSeconds    float64 `yaml:"writeTimeoutSeconds" validate:"gte=0"`
	ShutdownTimeoutSeconds float64 `yaml:"shutdownTimeoutSeconds" validate:"gt=0"`
	ResponseGzip           bool    `yaml:"responseGzip"`
	CORSAllowedOrigins     string  `yaml:"corsAllowedOrigins"`
	MetricsEnabled         bool    `yaml:"metricsEnabled"`
}

// Config is the process-wide configuration. It is built once by Load and must not be
// modified afterwards; derived values are exposed through methods.
type Config struct {
	Port        int           `yaml:"port" validate:"gt=0,lte=65535"`
	Environment string        `yaml:"environment" validate:"oneof=development test production"`
	Engine      EngineConfig  `yaml:"engine"`
	Upload      UploadConfig  `yaml:"upload"`
	Server      ServerConfig  `yaml:"server"`
	Logger      logger.Config `yaml:"logger"`

	baseArgs       []string
	extensions     ExtensionSet
	maxUploadBytes int64
}

// Options controls where Load reads from.
type Options struct {
	// ConfigFile is an optional YAML file; empty skips it.
	ConfigFile string
	// DotEnvFile is an optional dotenv file; a missing file is ignored.
	DotEnvFile string
	// LookupEnv resolves environment variables; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Default returns the built-in configuration before any source is applied.
func Default() Config {
	return Config{
		Port:        defaultPort,
		Environment: EnvDevelopment,
		Engine: EngineConfig{
			Binary:         defaultEngineBinary,
			TimeoutSeconds: defaultSliceTimeoutSeconds,
		},
		Upload: UploadConfig{
			Dir:               defaultUploadDir,
			MaxFileSizeMB:     defaultMaxFileSizeMB,
			AllowedExtensions: defaultAllowedExtensions,
		},
		Server: ServerConfig{
			ReadTimeoutSeconds:     defaultReadTimeoutSeconds,
			WriteTimeoutSeconds:    defaultWriteTimeoutSeconds,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
			CORSAllowedOrigins:     defaultCORSOrigins,
			MetricsEnabled:         true,
		},
	}
}

// Load applies defaults, the YAML file, the dotenv file and the environment, in that
// order, then validates the result. Any error is fatal for the caller.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := loadYAML(opts.ConfigFile, &cfg); err != nil {
			return nil, appErr.Wrapf(err, appErr.ConfigLoadFail, "load config file failed: %v", err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if opts.DotEnvFile != "" {
		dotenv, err := godotenv.Read(opts.DotEnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, appErr.Wrapf(err, appErr.ConfigLoadFail, "read dotenv file failed: %v", err)
		}
		lookup = withFallback(lookup, dotenv)
	}

	if err := applyEnv(&cfg, envSource{lookup: lookup}); err != nil {
		return nil, err
	}
	applyLoggerDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.derive()
	return &cfg, nil
}

func loadYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// withFallback resolves from the primary lookup first, so real environment variables
// win over dotenv entries.
func withFallback(primary func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func applyEnv(cfg *Config, env envSource) error {
	env.setInt("PORT", &cfg.Port)
	if !env.setString("APP_ENV", &cfg.Environment) {
		env.setString("NODE_ENV", &cfg.Environment)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))

	env.setString("CURA_ENGINE_BIN", &cfg.Engine.Binary)
	env.setString("CURA_ENGINE_ARGS", &cfg.Engine.Args)
	env.setFloat("SLICE_TIMEOUT_SECONDS", &cfg.Engine.TimeoutSeconds)
	env.setInt("MAX_CONCURRENT_SLICES", &cfg.Engine.MaxConcurrent)
	env.setFloat("ADMISSION_WAIT_SECONDS", &cfg.Engine.AdmissionWaitSeconds)

	env.setFloat("MAX_MODEL_FILE_SIZE_MB", &cfg.Upload.MaxFileSizeMB)
	env.setString("ALLOWED_MODEL_EXTENSIONS", &cfg.Upload.AllowedExtensions)
	env.setString("UPLOAD_DIR", &cfg.Upload.Dir)

	env.setFloat("READ_TIMEOUT_SECONDS", &cfg.Server.ReadTimeoutSeconds)
	env.setFloat("WRITE_TIMEOUT_SECONDS", &cfg.Server.WriteTimeoutSeconds)
	env.setFloat("SHUTDOWN_TIMEOUT_SECONDS", &cfg.Server.ShutdownTimeoutSeconds)
	env.setBool("RESPONSE_GZIP", &cfg.Server.ResponseGzip)
	env.setString("CORS_ALLOWED_ORIGINS", &cfg.Server.CORSAllowedOrigins)
	env.setBool("METRICS_ENABLED", &cfg.Server.MetricsEnabled)

	env.setString("LOG_LEVEL", &cfg.Logger.Level)
	env.setString("LOG_FORMAT", &cfg.Logger.Format)
	env.setString("LOG_OUTPUT", &cfg.Logger.OutputPath)

	if len(env.errs) > 0 {
		return appErr.New(appErr.ConfigInvalid).
			WithMessagef("invalid environment: %s", strings.Join(env.errs, "; ")).
			WithDetail("fields", env.errs)
	}
	return nil
}

func applyLoggerDefaults(cfg *Config) {
	defaults := logger.DefaultConfig(cfg.Environment)
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = defaults.Level
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = defaults.Format
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = defaults.OutputPath
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return appErr.Wrapf(err, appErr.ConfigInvalid, "validate config failed: %v", err)
		}
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return appErr.New(appErr.ConfigInvalid).
			WithMessagef("invalid configuration: %s", strings.Join(problems, "; ")).
			WithDetail("fields", problems)
	}
	if ParseExtensions(c.Upload.AllowedExtensions).Len() == 0 {
		return appErr.New(appErr.ConfigInvalid).
			WithMessage("invalid configuration: allowed extensions list is empty")
	}
	return nil
}

func (c *Config) derive() {
	c.baseArgs = TokenizeArgs(c.Engine.Args)
	c.extensions = ParseExtensions(c.Upload.AllowedExtensions)
	c.maxUploadBytes = int64(c.Upload.MaxFileSizeMB * bytesPerMB)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// BaseArgs returns a fresh copy of the tokenized engine arguments.
func (c *Config) BaseArgs() []string {
	out := make([]string, len(c.baseArgs))
	copy(out, c.baseArgs)
	return out
}

// AllowedExtensions returns the read-only set of accepted model extensions.
func (c *Config) AllowedExtensions() ExtensionSet {
	return c.extensions
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// SliceTimeout is the hard wall-clock limit for one engine run.
func (c *Config) SliceTimeout() time.Duration {
	return seconds(c.Engine.TimeoutSeconds)
}

// AdmissionWait is how long a job may wait for an engine slot.
func (c *Config) AdmissionWait() time.Duration {
	return seconds(c.Engine.AdmissionWaitSeconds)
}

// ReadTimeout bounds reading a full request, upload included.
func (c *Config) ReadTimeout() time.Duration {
	return seconds(c.Server.ReadTimeoutSeconds)
}

// WriteTimeout bounds streaming one artifact to the client.
func (c *Config) WriteTimeout() time.Duration {
	return seconds(c.Server.WriteTimeoutSeconds)
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return seconds(c.Server.ShutdownTimeoutSeconds)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
