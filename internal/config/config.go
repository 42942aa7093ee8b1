package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/localforge/localforge/internal/logger"
)

// Config is the daemon configuration read from a TOML file.
type Config struct {
	InstallDir string                   `mapstructure:"install_dir"`
	DataDir    string                   `mapstructure:"data_dir"`
	ListenAddr string                   `mapstructure:"listen_addr"`
	StoreDSN   string                   `mapstructure:"store_dsn"`
	CacheTTL   time.Duration            `mapstructure:"cache_ttl"`
	AutoStart  []string                 `mapstructure:"auto_start"`
	Services   map[string]ServiceConfig `mapstructure:"services"`
	Log        LogConfig                `mapstructure:"log"`
	ProcessLog logger.FileConfig        `mapstructure:"process_log"`
	Tunnel     TunnelConfig             `mapstructure:"tunnel"`
	History    HistoryConfig            `mapstructure:"history"`
}

// ServiceConfig overrides the catalog defaults for one service when it is
// started through the automatic path.
type ServiceConfig struct {
	Port      int      `mapstructure:"port"`
	ExtraArgs []string `mapstructure:"extra_args"`
}

// LogConfig controls the daemon's own structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Color bool   `mapstructure:"color"`
}

// TunnelConfig holds relay-client settings.
type TunnelConfig struct {
	StatusURL string `mapstructure:"status_url"`
	Domain    string `mapstructure:"domain"`
	AuthToken string `mapstructure:"auth_token"`
	Port      int    `mapstructure:"port"`
}

// HistoryConfig enables the ClickHouse lifecycle-event sink when Addr is set.
type HistoryConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Table    string `mapstructure:"table"`
}

// Default returns the configuration used when no file is present. The
// install/data trees live under the user home like the desktop app lays
// them out.
func Default() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".localforge")
	return Config{
		InstallDir: filepath.Join(base, "services"),
		DataDir:    filepath.Join(base, "data"),
		ListenAddr: "127.0.0.1:8847",
		StoreDSN:   filepath.Join(base, "data", "localforge.db"),
		CacheTTL:   24 * time.Hour,
		Log:        LogConfig{Level: "info"},
		ProcessLog: logger.FileConfig{Dir: filepath.Join(base, "logs")},
		Tunnel:     TunnelConfig{Port: 8080},
	}
}

// Load reads a TOML config file, layering it over Default. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return cfg, nil
}
