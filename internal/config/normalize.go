package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeJobs()
	c.normalizeTranscriber()
	c.normalizeCallbacks()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if value, ok := os.LookupEnv("WHISPERD_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeJobs() {
	if value, ok := os.LookupEnv("WHISPERD_MAX_CONCURRENT"); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			c.Jobs.MaxConcurrent = parsed
		}
	}
	if c.Jobs.MaxConcurrent <= 0 {
		c.Jobs.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Jobs.RetentionMinutes <= 0 {
		c.Jobs.RetentionMinutes = defaultRetentionMinutes
	}
	if c.Jobs.CheckpointEvery <= 0 {
		c.Jobs.CheckpointEvery = defaultCheckpointEvery
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.Command = strings.TrimSpace(c.Transcriber.Command)
	if c.Transcriber.Command == "" {
		c.Transcriber.Command = defaultTranscriberCommand
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
	if c.Transcriber.BeamSize <= 0 {
		c.Transcriber.BeamSize = defaultTranscriberBeamSize
	}
	c.Transcriber.ComputeType = strings.TrimSpace(c.Transcriber.ComputeType)
	if c.Transcriber.ComputeType == "" {
		c.Transcriber.ComputeType = defaultTranscriberComputeType
	}
}

func (c *Config) normalizeCallbacks() {
	if c.Callbacks.RequestTimeout <= 0 {
		c.Callbacks.RequestTimeout = defaultCallbackRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
