package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "haru.db"
	DefaultListenAddr     = "127.0.0.1:8787"
)

type Keymap struct {
	Quit   string `toml:"quit"`
	Add    string `toml:"add"`
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	Toggle string `toml:"toggle"`
	Delete string `toml:"delete"`
	Edit   string `toml:"edit"`
	Undo   string `toml:"undo"`
	Filter string `toml:"filter"`
	Theme  string `toml:"theme"`
}

type Weather struct {
	Place     string  `toml:"place"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

type Config struct {
	DBPath        string  `toml:"db_path"`
	ListenAddr    string  `toml:"listen_addr"`
	APIBaseURL    string  `toml:"api_base_url"`
	DefaultFilter string  `toml:"default_filter"`
	UndoWindowMS  int     `toml:"undo_window_ms"`
	Theme         string  `toml:"theme"`
	Weather       Weather `toml:"weather"`
	Keys          Keymap  `toml:"keys"`
}

// ResolvePath returns the config location: $HARU_CONFIG if set, otherwise
// config.toml under the user config dir, falling back to the working dir.
func ResolvePath() string {
	if p := os.Getenv("HARU_CONFIG"); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "haru", DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath(path)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://" + cfg.ListenAddr
	}
	if cfg.UndoWindowMS <= 0 {
		cfg.UndoWindowMS = 1000
	}
	return cfg, nil
}

// Save persists the config (used when the TUI changes the theme).
func Save(path string, cfg Config) error {
	return write(path, cfg)
}

func write(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultDBPath(configPath string) string {
	if dir := filepath.Dir(configPath); dir != "." {
		return filepath.Join(dir, DefaultDBName)
	}
	return DefaultDBName
}

func defaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath(ResolvePath()),
		ListenAddr:    DefaultListenAddr,
		APIBaseURL:    "http://" + DefaultListenAddr,
		DefaultFilter: "all",
		UndoWindowMS:  1000,
		Theme:         "auto",
		Weather: Weather{
			Place:     "Seoul",
			Latitude:  37.5665,
			Longitude: 126.978,
		},
		Keys: Keymap{
			Quit:   "q",
			Add:    "a",
			Up:     "k",
			Down:   "j",
			Toggle: " ",
			Delete: "d",
			Edit:   "e",
			Undo:   "u",
			Filter: "tab",
			Theme:  "t",
		},
	}
}
