package config

const (
	defaultCheckEverySeconds    = 300
	defaultStatePath            = "~/.local/share/vigil/state.json"
	defaultStateOnCorrupt       = "rebaseline"
	defaultHistoryPath          = "~/.local/share/vigil/history.db"
	defaultHistoryKeepRuns      = 5000
	defaultHTTPTimeout          = 30
	defaultHTTPMaxBodyBytes     = 10 << 20
	defaultUserAgent            = "vigil/" + Version
	defaultShell                = "sh"
	defaultTransformTimeout     = 60
	defaultActionTimeout        = 120
	defaultShutdownGrace        = 10
	defaultLogDir               = "~/.local/share/vigil/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultNotifyRequestTimeout = 10
	defaultNotifyFailureBurst   = 3
	defaultNotifyFailurePerHour = 12
)

// Version is the release identifier baked into the user agent and startup banner.
const Version = "0.1.0"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		CheckEvery: defaultCheckEverySeconds,
		State: State{
			Path:      defaultStatePath,
			OnCorrupt: defaultStateOnCorrupt,
		},
		History: History{
			Enabled:  true,
			Path:     defaultHistoryPath,
			KeepRuns: defaultHistoryKeepRuns,
		},
		HTTP: HTTP{
			Timeout:      defaultHTTPTimeout,
			MaxBodyBytes: defaultHTTPMaxBodyBytes,
			UserAgent:    defaultUserAgent,
		},
		Exec: Exec{
			Shell:            defaultShell,
			TransformTimeout: defaultTransformTimeout,
			ActionTimeout:    defaultActionTimeout,
		},
		Daemon: Daemon{
			ShutdownGrace: defaultShutdownGrace,
			LogDir:        defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			OnChange:       true,
			OnFailure:      true,
			FailureBurst:   defaultNotifyFailureBurst,
			FailurePerHour: defaultNotifyFailurePerHour,
		},
	}
}
