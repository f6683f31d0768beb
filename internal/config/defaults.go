package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		SiteDomain: "example.com",
		MaxMindDB:  "",
		TopK:       10,
		Verbose:    false,
		Engine:     EngineMemory,
		LogFormat:  "combined",
		SQLite: SQLiteConfig{
			Path: "",
		},
		Classification: ClassificationConfig{
			RobotMarker:  "/robots.txt",
			NoiseMarkers: []string{"favicon"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
