package config

import "crypto/rand"

var defaultConfig = Config{
	AppName:   "Navidrop",
	UploadDir: "./uploads",
	Server: Server{
		PrintRoutes:         false,
		Port:                3535,
		ReadTimeoutSeconds:  120,
		WriteTimeoutSeconds: 300,
	},
	Logger: Logger{
		Enabled: true,
		Level:   "info",
		Format:  "text",
		File: LogFile{
			Path:       "", // e.g. ./logs/navidrop.log
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	},
	Auth: Auth{
		Username:      "admin",
		Password:      "changeme",
		SessionSecret: "", // generated per config, see createDefaultConfig
		SessionCookie: "navidrop_session",
		SessionMaxAge: 86400,
		SameSite:      "Lax",
		HTTPSOnly:     false,
		LoginRateLimit: LoginRateLimit{
			Max:           5,
			WindowSeconds: 60,
		},
	},
	Upload: Upload{
		MaxSizeMB:            50,
		MaxRequestMB:         1024,
		MaxCoverMB:           10,
		Workers:              4,
		StaleAfterSeconds:    600,
		SweepIntervalSeconds: 300,
	},
	Navidrome: Navidrome{
		URL:               "http://localhost:4533",
		Username:          "admin",
		Password:          "",
		ClientName:        "navidrop",
		TimeoutSeconds:    5,
		RequestsPerSecond: 5,
	},
	SFTP: SFTP{
		Host:                  "localhost",
		Port:                  22,
		Username:              "music",
		RemoteDir:             "/music",
		TimeoutSeconds:        10,
		SessionTimeoutSeconds: 600,
		Asciify:               false,
	},
	Artwork: Artwork{
		MaxSize: 1000,
		Quality: 85,
	},
}

// publishedSecret is the session secret older releases wrote into config.yaml.
const publishedSecret = "change-this-session-secret"

// createDefaultConfig returns a copy of the default configuration with a fresh session secret.
func createDefaultConfig() *Config {
	cfg := defaultConfig
	cfg.Auth.SessionSecret = rand.Text()
	return &cfg
}
