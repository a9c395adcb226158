// Package config reads the YAML settings shared by the meshtopo tools.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/notargets/simplicial/partitions"
	"github.com/notargets/simplicial/topology"
)

type Config struct {
	SegmentSize int       `yaml:"segmentSize"`
	LogLevel    string    `yaml:"logLevel"`
	LogFormat   string    `yaml:"logFormat"`
	Partition   Partition `yaml:"partition"`
}

type Partition struct {
	Count      int    `yaml:"count"`
	TargetSize int    `yaml:"targetSize"`
	Strategy   string `yaml:"strategy"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	var c Config
	c.fill()
	return c
}

// Load reads a YAML config file. Unset fields take their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data. Unset fields take their defaults.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	c.fill()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) fill() {
	if c.SegmentSize == 0 {
		c.SegmentSize = topology.DefaultSegmentSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Partition.Strategy == "" {
		c.Partition.Strategy = partitions.GraphPartition.String()
	}
	if c.Partition.Count == 0 && c.Partition.TargetSize == 0 {
		c.Partition.Count = 2
	}
}

// Validate checks the settings without applying them.
func (c Config) Validate() error {
	if c.SegmentSize < 1 {
		return fmt.Errorf("segmentSize %d: must be positive", c.SegmentSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("logFormat %q: want text or json", c.LogFormat)
	}
	if c.Partition.Count < 0 || c.Partition.TargetSize < 0 {
		return fmt.Errorf("partition count %d and target size %d must not be negative",
			c.Partition.Count, c.Partition.TargetSize)
	}
	if _, err := partitions.ParseStrategy(c.Partition.Strategy); err != nil {
		return fmt.Errorf("partition: %w", err)
	}
	return nil
}

// Logger builds a logger writing to out at the configured level.
func (c Config) Logger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(level)
	}
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l
}

// TopologyOptions maps the settings onto topology options.
func (c Config) TopologyOptions(logger logrus.FieldLogger) []topology.Option {
	opts := []topology.Option{topology.WithSegmentSize(c.SegmentSize)}
	if logger != nil {
		opts = append(opts, topology.WithLogger(logger))
	}
	return opts
}

// PartitionBuilder returns a builder for dg with the configured partition
// settings.
func (c Config) PartitionBuilder(dg *partitions.DualGraph, logger logrus.FieldLogger) (*partitions.PartitionBuilder, error) {
	strategy, err := partitions.ParseStrategy(c.Partition.Strategy)
	if err != nil {
		return nil, err
	}
	return &partitions.PartitionBuilder{
		Graph:               dg,
		NumPartitions:       c.Partition.Count,
		TargetPartitionSize: c.Partition.TargetSize,
		Strategy:            strategy,
		Logger:              logger,
	}, nil
}
