package config

const (
	defaultHost                 = "https://bookflow.bookalope.net"
	defaultBackend              = "auto"
	defaultHTTPTimeoutSeconds   = 60
	defaultPollIntervalMS       = 1250
	defaultPollMaxAttempts      = 1440
	defaultLogLevel             = "info"
	defaultLogFormat            = "console"
	defaultNotifyTimeoutSeconds = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			Host: defaultHost,
		},
		HTTP: HTTP{
			Backend:        defaultBackend,
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		Workflow: Workflow{
			PollIntervalMS:  defaultPollIntervalMS,
			PollMaxAttempts: defaultPollMaxAttempts,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSeconds,
		},
	}
}
