package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
)

type Config struct {
	Playback  PlaybackConfig `toml:"playback"`
	Controls  ControlsConfig `toml:"controls"`
	Subtitles SubtitleConfig `toml:"subtitles"`
	Server    ServerConfig   `toml:"server"`
	Remote    RemoteConfig   `toml:"remote"`
	Log       LogConfig      `toml:"log"`
	UI        UIConfig       `toml:"ui"`
}

type PlaybackConfig struct {
	HWAccel       string  `toml:"hwdec"`
	AudioLanguage string  `toml:"audio_language"`
	SubLanguage   string  `toml:"sub_language"`
	Volume        float64 `toml:"volume"`
	Speed         float64 `toml:"speed"`
	Autoplay      bool    `toml:"autoplay"`
	Theater       bool    `toml:"theater"`
	CacheSeconds  int     `toml:"cache_seconds"`
}

// ControlsConfig durations are milliseconds.
type ControlsConfig struct {
	IdleTimeout int `toml:"idle_timeout"`
	SeekStep    int `toml:"seek_step"`
	SeekQuiet   int `toml:"seek_quiet"`
	SeekLinger  int `toml:"seek_linger"`
}

type SubtitleConfig struct {
	Font         string  `toml:"font"`
	FontSize     int     `toml:"font_size"`
	Color        string  `toml:"color"`
	BorderColor  string  `toml:"border_color"`
	BorderSize   float64 `toml:"border_size"`
	ShadowOffset float64 `toml:"shadow_offset"`
	Position     int     `toml:"position"`
	ASSOverride  string  `toml:"ass_override"`
}

type ServerConfig struct {
	URL        string `toml:"url"`
	Username   string `toml:"username"`
	Token      string `toml:"token"`
	UserID     string `toml:"user_id"`
	DeviceID   string `toml:"device_id"`
	DirectPlay bool   `toml:"direct_play"`
}

type RemoteConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
	File  string `toml:"file"`
}

type UIConfig struct {
	Fullscreen bool `toml:"fullscreen"`
	Width      int  `toml:"width"`
	Height     int  `toml:"height"`
}

func DefaultConfig() *Config {
	return &Config{
		Playback: PlaybackConfig{
			HWAccel:       "auto-safe",
			AudioLanguage: "eng",
			SubLanguage:   "eng",
			Volume:        0.9,
			Speed:         1,
			CacheSeconds:  60,
		},
		Controls: ControlsConfig{
			IdleTimeout: 3000,
			SeekStep:    10,
			SeekQuiet:   800,
			SeekLinger:  400,
		},
		Subtitles: SubtitleConfig{
			Font:         "Liberation Sans",
			FontSize:     48,
			Color:        "#FFFFFF",
			BorderColor:  "#000000",
			BorderSize:   3,
			ShadowOffset: 2,
			Position:     95,
			ASSOverride:  "force",
		},
		Remote: RemoteConfig{
			Listen: "127.0.0.1:8765",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Width:  1280,
			Height: 720,
		},
	}
}

// Validate clamps numeric settings into their supported ranges and rejects
// values that cannot be corrected.
func (c *Config) Validate() error {
	c.Playback.Volume = lo.Clamp(c.Playback.Volume, 0, 1)
	if c.Playback.Speed <= 0 {
		c.Playback.Speed = 1
	}
	c.Playback.Speed = lo.Clamp(c.Playback.Speed, 0.25, 4)
	c.Playback.CacheSeconds = lo.Clamp(c.Playback.CacheSeconds, 0, 3600)

	c.Controls.IdleTimeout = lo.Clamp(c.Controls.IdleTimeout, 3000, 5000)
	if c.Controls.SeekStep <= 0 {
		c.Controls.SeekStep = 10
	}
	if c.Controls.SeekQuiet <= 0 {
		c.Controls.SeekQuiet = 800
	}
	if c.Controls.SeekLinger <= 0 {
		c.Controls.SeekLinger = 400
	}

	c.Subtitles.Position = lo.Clamp(c.Subtitles.Position, 0, 150)
	c.UI.Width = max(c.UI.Width, 320)
	c.UI.Height = max(c.UI.Height, 180)

	c.Log.Level = strings.ToLower(c.Log.Level)
	if !lo.Contains([]string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}, c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Remote.Enabled && c.Remote.Listen == "" {
		return errors.New("remote control enabled without a listen address")
	}
	return nil
}

func ConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "reelplayer"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the default config file. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
