// Package config holds the run configuration of a cleaning batch.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"photo-cleaner/internal/codec"
	"photo-cleaner/internal/logger"
)

const (
	CodecOpenCV = "opencv"
	CodecGo     = "go"

	DefaultReportName = "error_report.txt"

	maxFileSize = 1 * 1024 * 1024 // 1MB
)

// DefaultExtensions are the file types a batch picks up when none are configured.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tif", ".tiff"}

// goCodecUnwritable lists default extensions the go codec cannot write back.
var goCodecUnwritable = []string{".webp"}

type Config struct {
	InputRoot    string `json:"input_root"`
	OutputRoot   string `json:"output_root"`
	ManifestPath string `json:"manifest_path,omitempty"`
	ReportName   string `json:"report_name"`

	// Workers defaults to the number of CPUs. QueueSize bounds the items
	// waiting for a worker.
	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`

	Extensions  []string `json:"extensions"`
	Codec       string   `json:"codec"`
	JPEGQuality int      `json:"jpeg_quality"`

	NoiseScale    float64 `json:"noise_scale"`
	EdgeThreshold float64 `json:"edge_threshold"`

	LogLevel    string `json:"log_level"`
	LogJSON     bool   `json:"log_json"`
	ProfilePlot string `json:"profile_plot,omitempty"`
}

func Default() Config {
	workers := runtime.NumCPU()
	return Config{
		ReportName:    DefaultReportName,
		Workers:       workers,
		QueueSize:     workers * 2,
		Extensions:    append([]string(nil), DefaultExtensions...),
		Codec:         CodecOpenCV,
		JPEGQuality:   codec.DefaultJPEGQuality,
		NoiseScale:    25.0,
		EdgeThreshold: 20.0,
		LogLevel:      logger.InfoLevel.String(),
	}
}

// Load reads a JSON config file. Fields omitted from the file keep their
// default values, so partial configs are safe.
func Load(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and normalises the extension list.
func (c *Config) Validate() error {
	if c.InputRoot == "" {
		return fmt.Errorf("input_root is required")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root is required")
	}
	if filepath.Clean(c.InputRoot) == filepath.Clean(c.OutputRoot) {
		return fmt.Errorf("output_root must differ from input_root")
	}
	if c.ReportName == "" || strings.ContainsAny(c.ReportName, `/\`) {
		return fmt.Errorf("report_name must be a plain file name, got %q", c.ReportName)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = codec.NormalizeExt(ext)
		if c.Extensions[i] == "" {
			return fmt.Errorf("extension %d is empty", i)
		}
	}
	switch c.Codec {
	case CodecOpenCV:
	case CodecGo:
		// An explicit list is left alone so the capability check can reject it.
		if slices.Equal(c.Extensions, DefaultExtensions) {
			c.Extensions = slices.DeleteFunc(slices.Clone(c.Extensions), func(ext string) bool {
				return slices.Contains(goCodecUnwritable, ext)
			})
		}
	default:
		return fmt.Errorf("codec must be %q or %q, got %q", CodecOpenCV, CodecGo, c.Codec)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.NoiseScale <= 0 {
		return fmt.Errorf("noise_scale must be positive, got %f", c.NoiseScale)
	}
	if c.EdgeThreshold <= 0 {
		return fmt.Errorf("edge_threshold must be positive, got %f", c.EdgeThreshold)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// AcceptsExt reports whether files with extension ext belong to the batch.
func (c *Config) AcceptsExt(ext string) bool {
	ext = codec.NormalizeExt(ext)
	for _, allowed := range c.Extensions {
		if codec.NormalizeExt(allowed) == ext {
			return true
		}
	}
	return false
}

func (c *Config) ReportPath() string {
	return filepath.Join(c.OutputRoot, c.ReportName)
}
