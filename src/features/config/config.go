package config

// Config holds the application configuration.
type Config struct {
	AppName   string    `yaml:"appName"`
	UploadDir string    `yaml:"uploadDir" validate:"required"`
	Server    Server    `yaml:"server"`
	Logger    Logger    `yaml:"logger"`
	Auth      Auth      `yaml:"auth"`
	Upload    Upload    `yaml:"upload"`
	Navidrome Navidrome `yaml:"navidrome"`
	SFTP      SFTP      `yaml:"sftp"`
	Artwork   Artwork   `yaml:"artwork"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes         bool   `yaml:"show_routes"`
	Port                uint32 `yaml:"port" validate:"required,lte=65535"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds" validate:"gte=0"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool    `yaml:"enabled"`
	Level   string  `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string  `yaml:"format" validate:"omitempty,oneof=text json logfmt"`
	File    LogFile `yaml:"file"`
}

// LogFile enables a rotated copy of the log on disk. Empty Path disables it.
type LogFile struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Auth holds the single-user login and session cookie settings.
type Auth struct {
	Username       string         `yaml:"username" validate:"required"`
	Password       string         `yaml:"password" validate:"required_without=PasswordHash"`
	PasswordHash   string         `yaml:"password_hash"` // bcrypt, wins over Password when set
	SessionSecret  string         `yaml:"session_secret" validate:"required,min=16"`
	SessionCookie  string         `yaml:"session_cookie" validate:"required"`
	SessionMaxAge  int            `yaml:"session_max_age_seconds" validate:"gt=0"`
	SameSite       string         `yaml:"same_site" validate:"omitempty,oneof=Lax Strict None lax strict none"`
	HTTPSOnly      bool           `yaml:"https_only"`
	LoginRateLimit LoginRateLimit `yaml:"login_rate_limit"`
}

// LoginRateLimit caps login attempts per client IP.
type LoginRateLimit struct {
	Max           int `yaml:"max" validate:"gte=0"`
	WindowSeconds int `yaml:"window_seconds" validate:"gte=0"`
}

// Upload holds the staging limits.
type Upload struct {
	MaxSizeMB            int `yaml:"max_size_mb" validate:"gt=0"`
	MaxRequestMB         int `yaml:"max_request_mb" validate:"gtefield=MaxSizeMB"` // whole multipart body, all files of a batch
	MaxCoverMB           int `yaml:"max_cover_mb" validate:"gt=0"`
	Workers              int `yaml:"workers" validate:"gt=0"`
	StaleAfterSeconds    int `yaml:"stale_after_seconds" validate:"gt=0"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" validate:"gte=0"` // 0 disables the background sweeper
}

// MaxSizeBytes is the per-file upload limit shared by every component.
func (u Upload) MaxSizeBytes() int64 {
	return int64(u.MaxSizeMB) * 1024 * 1024
}

// MaxRequestBytes bounds a whole request body.
func (u Upload) MaxRequestBytes() int {
	return u.MaxRequestMB * 1024 * 1024
}

// Navidrome holds the Subsonic API credentials used for browsing and duplicate checks.
type Navidrome struct {
	URL               string  `yaml:"url" validate:"required,url"`
	Username          string  `yaml:"username"`
	Password          string  `yaml:"password"`
	ClientName        string  `yaml:"client_name"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" validate:"gt=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// SFTP holds the remote library delivery settings.
type SFTP struct {
	Host                  string `yaml:"host" validate:"required"`
	Port                  int    `yaml:"port" validate:"required,gt=0,lte=65535"`
	Username              string `yaml:"username" validate:"required"`
	Password              string `yaml:"password"`
	PrivateKeyPath        string `yaml:"private_key_path"`
	KnownHostsPath        string `yaml:"known_hosts_path"`
	RemoteDir             string `yaml:"remote_dir" validate:"required"`
	TimeoutSeconds        int    `yaml:"timeout_seconds" validate:"gt=0"`
	SessionTimeoutSeconds int    `yaml:"session_timeout_seconds" validate:"gt=0"`
	Asciify               bool   `yaml:"asciify"`
}

// Artwork holds configuration for embedded cover art
type Artwork struct {
	MaxSize int `yaml:"max_size" validate:"gte=0"`
	Quality int `yaml:"quality" validate:"gte=0,lte=100"`
}
