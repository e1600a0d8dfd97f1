package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
	Storage     StorageConfig     `mapstructure:"storage"     validate:"required"`
	Translation TranslationConfig `mapstructure:"translation"`
	Scanner     ScannerConfig     `mapstructure:"scanner"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BCryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=0,lte=31"`
}

// StorageConfig describes where per-user data lives on disk and how long
// finished tasks are kept in the in-memory registry.
type StorageConfig struct {
	DataDir      string `mapstructure:"data_dir"       validate:"required"`
	TaskTTLHours int    `mapstructure:"task_ttl_hours" validate:"gte=0"`
}

// TranslationConfig selects and parameterizes the translation engine.
type TranslationConfig struct {
	Engine string `mapstructure:"engine" validate:"omitempty,oneof=draft"`
}

// ScannerConfig controls the optional ClamAV scan of uploaded files.
type ScannerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ClamdAddress string `mapstructure:"clamd_address"`
}
