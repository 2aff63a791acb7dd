package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Client side.
	APIBaseURL    string        `mapstructure:"api_base_url"`
	WSURL         string        `mapstructure:"ws_url"`
	EditorBaseURL string        `mapstructure:"editor_base_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	JoinTimeout   time.Duration `mapstructure:"join_timeout"`
	StateDir      string        `mapstructure:"state_dir"`

	// Dev collaborator server.
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	DBPath    string `mapstructure:"db_path"`
	Secret    string `mapstructure:"secret"`
	ReadLimit int64  `mapstructure:"read_limit"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("api_base_url", "http://localhost:3000")
	v.SetDefault("ws_url", "ws://localhost:3000/ws")
	v.SetDefault("editor_base_url", "http://localhost:5173")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("join_timeout", "15s")
	v.SetDefault("state_dir", filepath.Join(os.TempDir(), "codesync"))

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("db_path", "codesync.db")
	v.SetDefault("secret", "dev-secret")
	v.SetDefault("read_limit", 32768)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
