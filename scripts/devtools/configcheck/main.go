// Command configcheck resolves the slice service configuration the same way the service
// does and prints the effective values, or the validation error.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"printum/internal/config"

	"gopkg.in/yaml.v3"
)

type effective struct {
	Config  *config.Config `yaml:"config"`
	Derived derived        `yaml:"derived"`
}

type derived struct {
	Addr              string   `yaml:"addr"`
	BaseArgs          []string `yaml:"baseArgs"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	MaxUploadBytes    int64    `yaml:"maxUploadBytes"`
	SliceTimeout      string   `yaml:"sliceTimeout"`
	AdmissionWait     string   `yaml:"admissionWait"`
	WriteTimeout      string   `yaml:"writeTimeout"`
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to an optional YAML config file")
	dotEnvPath := flag.String("env-file", ".env", "Path to an optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configPath, DotEnvFile: *dotEnvPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration rejected: %v\n", err)
		os.Exit(1)
	}
	if err := render(os.Stdout, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "render config failed: %v\n", err)
		os.Exit(1)
	}
}

func render(w io.Writer, cfg *config.Config) error {
	out := effective{
		Config: cfg,
		Derived: derived{
			Addr:              cfg.Addr(),
			BaseArgs:          cfg.BaseArgs(),
			AllowedExtensions: cfg.AllowedExtensions().List(),
			MaxUploadBytes:    cfg.MaxUploadBytes(),
			SliceTimeout:      cfg.SliceTimeout().String(),
			AdmissionWait:     cfg.AdmissionWait().String(),
			WriteTimeout:      cfg.WriteTimeout().String(),
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
