package config

const (
	defaultWorkDir                = "~/.local/share/whisperd/work"
	defaultLogDir                 = "~/.local/share/whisperd/logs"
	defaultAPIBind                = "127.0.0.1:8471"
	defaultMaxConcurrent          = 5
	defaultRetentionMinutes       = 30
	defaultCheckpointEvery        = 5
	defaultTranscriberCommand     = "faster-whisper-segments"
	defaultTranscriberModel       = "base"
	defaultTranscriberBeamSize    = 5
	defaultTranscriberComputeType = "int8"
	defaultCallbackRequestTimeout = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Jobs: Jobs{
			MaxConcurrent:    defaultMaxConcurrent,
			RetentionMinutes: defaultRetentionMinutes,
			CheckpointEvery:  defaultCheckpointEvery,
		},
		Transcriber: Transcriber{
			Command:     defaultTranscriberCommand,
			Model:       defaultTranscriberModel,
			BeamSize:    defaultTranscriberBeamSize,
			ComputeType: defaultTranscriberComputeType,
		},
		Callbacks: Callbacks{
			RequestTimeout: defaultCallbackRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
