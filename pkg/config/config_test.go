package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.TensorFillDepth != DefaultTensorFillDepth {
		t.Errorf("TensorFillDepth = %d, want %d", cfg.TensorFillDepth, DefaultTensorFillDepth)
	}
	if cfg.OutputBufferSize != DefaultOutputBufferSize {
		t.Errorf("OutputBufferSize = %d, want %d", cfg.OutputBufferSize, DefaultOutputBufferSize)
	}
	if cfg.VerifyRoundtrip {
		t.Error("VerifyRoundtrip should default to false")
	}
}

func TestLoadPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "railway.yml")
	if err := os.WriteFile(path, []byte("verify_roundtrip: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.VerifyRoundtrip {
		t.Error("expected verify_roundtrip to be true")
	}
	if cfg.TensorFillDepth != DefaultTensorFillDepth {
		t.Errorf("unset field should keep its default, got %d", cfg.TensorFillDepth)
	}
}

func TestLoadEmptyFileIsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "railway.yml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TensorFillDepth != DefaultTensorFillDepth {
		t.Errorf("empty file should decode to defaults, got %d", cfg.TensorFillDepth)
	}
}

func TestLoadUnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "railway.yml")
	if err := os.WriteFile(path, []byte("bogus_field: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error decoding a railway.yml with an unknown field")
	}
}

func TestLoadInvalidValueRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "railway.yml")
	if err := os.WriteFile(path, []byte("tensor_fill_depth: -1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a validation error for a negative tensor_fill_depth")
	}
}

func TestFindNearMissingFileIsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FindNear(filepath.Join(dir, "program.rw"))
	if err != nil {
		t.Fatalf("FindNear: %v", err)
	}
	if cfg.TensorFillDepth != DefaultTensorFillDepth {
		t.Error("expected default config when no railway.yml is present")
	}
}

func TestFindNearLoadsAdjacentFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "railway.yml"), []byte("output_buffer_size: 128\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := FindNear(filepath.Join(dir, "program.rw"))
	if err != nil {
		t.Fatalf("FindNear: %v", err)
	}
	if cfg.OutputBufferSize != 128 {
		t.Errorf("OutputBufferSize = %d, want 128", cfg.OutputBufferSize)
	}
}
