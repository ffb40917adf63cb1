// Package config loads host and client settings from config.toml, .env and
// LOBBY_* environment variables, and persists the player's preferences.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Player PlayerConfig `mapstructure:"player"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds lobby host settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	ServerName  string `mapstructure:"server_name"`
	DefaultMap  string `mapstructure:"default_map"`
	Spectators  int    `mapstructure:"spectators"`
	DatabaseURL string `mapstructure:"database_url"`
	MapsDir     string `mapstructure:"maps_dir"`
	RulesPath   string `mapstructure:"rules_path"`
}

// ClientConfig holds settings for joining a lobby.
type ClientConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Code        string        `mapstructure:"code"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	ChatLines   int           `mapstructure:"chat_lines"`
	ChatWidth   int           `mapstructure:"chat_width"`
	MapsDir     string        `mapstructure:"maps_dir"`
	RulesPath   string        `mapstructure:"rules_path"`
}

// PlayerConfig is what the lobby remembers between sessions.
type PlayerConfig struct {
	Name    string `mapstructure:"name"`
	Color   string `mapstructure:"color"` // "H,S,L,R"
	LastMap string `mapstructure:"last_map"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Path is where the config file lives: $LOBBY_CONFIG, or
// ~/.config/skirmish-lobby/config.toml.
func Path() string {
	if p := os.Getenv("LOBBY_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "skirmish-lobby", "config.toml")
}

// Load reads .env if present, then the config file and LOBBY_ env overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// default values
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.server_name", "Skirmish")
	v.SetDefault("server.default_map", "")
	v.SetDefault("server.spectators", 2)
	v.SetDefault("server.database_url", "")
	v.SetDefault("server.maps_dir", "maps")
	v.SetDefault("server.rules_path", "")
	v.SetDefault("client.host", "127.0.0.1")
	v.SetDefault("client.port", 8080)
	v.SetDefault("client.code", "")
	v.SetDefault("client.dial_timeout", 10*time.Second)
	v.SetDefault("client.chat_lines", 500)
	v.SetDefault("client.chat_width", 72)
	v.SetDefault("client.maps_dir", "maps")
	v.SetDefault("client.rules_path", "")
	v.SetDefault("player.name", "Newbie")
	v.SetDefault("player.color", "")
	v.SetDefault("player.last_map", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetConfigFile(Path())
	v.SetConfigType("toml")

	v.SetEnvPrefix("LOBBY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// SavePlayer writes p into the config file at path, keeping whatever else
// the file already holds.
func SavePlayer(path string, p PlayerConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	_ = v.ReadInConfig()

	v.Set("player.name", p.Name)
	v.Set("player.color", p.Color)
	v.Set("player.last_map", p.LastMap)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
