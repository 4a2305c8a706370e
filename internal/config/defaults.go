package config

// Defaults returns a runnable starter configuration: a local WebSocket chat
// with a command dispatcher and a rate limit on outbound sends.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:    "info",
			MetricsAddr: "",
		},
		Services: []ServiceDef{
			{
				Name:    "local",
				Service: "websocket",
				Params: map[string]any{
					"addr": ":8081",
					"path": "/ws",
				},
			},
			{
				Name:    "commands",
				Service: "dispatch",
				Params: map[string]any{
					"chat":   "local",
					"prefix": "!",
				},
			},
			{
				Name:    "ratelimit",
				Service: "ratelimit",
				Params: map[string]any{
					"chat":       "local",
					"burst":      10,
					"per_minute": 60,
				},
			},
		},
	}
}
