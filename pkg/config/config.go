// Package config loads the optional railway.yml run-configuration file,
// following the decode-then-validate shape of the teacher's
// pkg/driver/manifest.go: a permissive YAML decode into a raw shape,
// translated into a validated Config with an aggregate error on failure.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the interpreter-level run options railway.yml may set.
// Any field left unset in the file keeps its Default* value.
type Config struct {
	Path string

	// VerifyRoundtrip runs main backwards immediately after a successful
	// forward run, checking that every global ends back where it started
	// (spec invariant P1), and reports a failure as a run error.
	VerifyRoundtrip bool

	// TensorFillDepth caps the nesting depth a tensor() literal may build,
	// guarding against runaway dims expressions.
	TensorFillDepth int

	// OutputBufferSize sets the buffer size, in bytes, of the writer print
	// statements write through.
	OutputBufferSize int
}

const (
	DefaultTensorFillDepth  = 64
	DefaultOutputBufferSize = 4096
)

// Default returns the configuration used when no railway.yml is found.
func Default() *Config {
	return &Config{
		TensorFillDepth:  DefaultTensorFillDepth,
		OutputBufferSize: DefaultOutputBufferSize,
	}
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Load parses railway.yml from path, returning a validated Config.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	cfg := raw.toConfig(absPath)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindNear looks for railway.yml next to sourcePath. It returns Default()
// with no error if no such file exists.
func FindNear(sourcePath string) (*Config, error) {
	candidate := filepath.Join(filepath.Dir(sourcePath), "railway.yml")
	if _, err := os.Stat(candidate); err != nil {
		return Default(), nil
	}
	return Load(candidate)
}

func (c *Config) validate() error {
	var errs ValidationError
	if c.TensorFillDepth <= 0 {
		errs.Issues = append(errs.Issues, "tensor_fill_depth must be positive")
	}
	if c.OutputBufferSize <= 0 {
		errs.Issues = append(errs.Issues, "output_buffer_size must be positive")
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

type configFile struct {
	VerifyRoundtrip  *bool `yaml:"verify_roundtrip"`
	TensorFillDepth  *int  `yaml:"tensor_fill_depth"`
	OutputBufferSize *int  `yaml:"output_buffer_size"`
}

func (cf configFile) toConfig(path string) *Config {
	cfg := Default()
	cfg.Path = path
	if cf.VerifyRoundtrip != nil {
		cfg.VerifyRoundtrip = *cf.VerifyRoundtrip
	}
	if cf.TensorFillDepth != nil {
		cfg.TensorFillDepth = *cf.TensorFillDepth
	}
	if cf.OutputBufferSize != nil {
		cfg.OutputBufferSize = *cf.OutputBufferSize
	}
	return cfg
}
