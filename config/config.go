// Package config defines the file a synchronization run is described by.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/gyrosync/gyro"
	"go.viam.com/gyrosync/logging"
	"go.viam.com/gyrosync/synchronization"
)

// Config describes one synchronization run. File paths are relative to the config file.
type Config struct {
	GyroFile    string  `json:"gyro_file" yaml:"gyro_file"`
	FlowFile    string  `json:"flow_file" yaml:"flow_file"`
	LensProfile string  `json:"lens_profile" yaml:"lens_profile"`
	ScaledFPS   float64 `json:"scaled_fps" yaml:"scaled_fps"`

	// Orientation is the gyro mounting orientation, e.g. "XYZ" or "yXz". Empty means "XYZ".
	Orientation      string                      `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	GuessOrientation bool                        `json:"guess_orientation,omitempty" yaml:"guess_orientation,omitempty"`
	Sync             synchronization.SyncParams  `json:"sync" yaml:"sync"`
	Ranges           []synchronization.TimeRange `json:"ranges" yaml:"ranges"`
	LogLevel         string                      `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	ConfigFilePath string `json:"-" yaml:"-"`
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var err error
	for _, f := range []struct{ name, value string }{
		{"gyro_file", c.GyroFile},
		{"flow_file", c.FlowFile},
		{"lens_profile", c.LensProfile},
	} {
		if f.value == "" {
			err = multierr.Append(err, errors.Errorf("%q is required", f.name))
		}
	}
	if !(c.ScaledFPS > 0) {
		err = multierr.Append(err, errors.Errorf("scaled_fps must be positive, got %v", c.ScaledFPS))
	}
	if _, oErr := c.MountOrientation(); oErr != nil {
		err = multierr.Append(err, oErr)
	}
	err = multierr.Append(err, errors.Wrap(c.Sync.Validate(), "sync"))
	if len(c.Ranges) == 0 {
		err = multierr.Append(err, errors.New("at least one range is required"))
	}
	for i, r := range c.Ranges {
		if r.To <= r.From {
			err = multierr.Append(err, errors.Errorf("range %d ends (%d) before it starts (%d)", i, r.To, r.From))
		}
	}
	if c.LogLevel != "" {
		if _, lErr := logging.LevelFromString(c.LogLevel); lErr != nil {
			err = multierr.Append(err, lErr)
		}
	}
	return err
}

// MountOrientation parses Orientation.
func (c *Config) MountOrientation() (gyro.Orientation, error) {
	if c.Orientation == "" {
		return gyro.IdentityOrientation, nil
	}
	return gyro.ParseOrientation(c.Orientation)
}

// ResolvePath returns p relative to the directory of the config file.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.ConfigFilePath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.ConfigFilePath), p)
}

// Read reads a config from the given file, expanding environment variables. Files ending in
// .yaml or .yml are YAML, everything else JSON.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from r. originalPath selects the format and anchors relative paths.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	switch strings.ToLower(filepath.Ext(originalPath)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode Config from yaml")
		}
	default:
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode Config from json")
		}
	}
	cfg.ConfigFilePath = originalPath
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}
