// Package config loads the Object Hunter YAML configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/objecthunter/internal/session"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full process configuration.
type Config struct {
	Game      GameConfig      `yaml:"game"`
	Detection DetectionConfig `yaml:"detection"`
	Camera    CameraConfig    `yaml:"camera"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Prompts   PromptsConfig   `yaml:"prompts"`
}

// LevelConfig overrides one difficulty. A zero duration, an empty object list or an absent
// min_confidence keeps the built-in value; min_confidence: 0 is an explicit override.
type LevelConfig struct {
	Duration      time.Duration `yaml:"duration"`
	MinConfidence *float64      `yaml:"min_confidence"`
	Objects       []string      `yaml:"objects"`
}

type GameConfig struct {
	DefaultDifficulty  string                 `yaml:"default_difficulty"`
	Difficulties       map[string]LevelConfig `yaml:"difficulties"`
	CelebrationDelay   time.Duration          `yaml:"celebration_delay"`
	DoubleClickWindow  time.Duration          `yaml:"double_click_window"`
	SkipBudget         int                    `yaml:"skip_budget"`
	TransitionDuration time.Duration          `yaml:"transition_duration"`
	FrameRate          int                    `yaml:"frame_rate"`
}

type DetectionConfig struct {
	// Backend is one of "dnn", "service" or "mock".
	Backend       string        `yaml:"backend"`
	ModelPath     string        `yaml:"model_path"`
	LabelsPath    string        `yaml:"labels_path"`
	Python        string        `yaml:"python"`
	ServiceScript string        `yaml:"service_script"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	Cooldown      time.Duration `yaml:"cooldown"`
	MinConfidence float64       `yaml:"min_confidence"`
	MaxResults    int           `yaml:"max_results"`
	InputSize     int           `yaml:"input_size"`
	NMSThreshold  float64       `yaml:"nms_threshold"`
}

type CameraConfig struct {
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type StoreConfig struct {
	// Path is the SQLite database file. Empty means ~/.objecthunter/objecthunter.db.
	Path   string `yaml:"path"`
	Player string `yaml:"player"`
}

type PluginsConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
	// Settings holds per-plugin configuration, keyed by plugin name.
	Settings map[string]map[string]any `yaml:"settings"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

type PromptsConfig struct {
	// Style is "basic", "fun", "dynamic" or "themed".
	Style string `yaml:"style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rules := session.DefaultRules()
	return &Config{
		Game: GameConfig{
			DefaultDifficulty:  rules.DefaultDifficulty.String(),
			Difficulties:       map[string]LevelConfig{},
			CelebrationDelay:   rules.CelebrationDelay,
			DoubleClickWindow:  rules.DoubleClickWindow,
			SkipBudget:         rules.SkipBudget,
			TransitionDuration: rules.TransitionDuration,
			FrameRate:          30,
		},
		Detection: DetectionConfig{
			Backend:       "dnn",
			ModelPath:     "models/yolov8n.onnx",
			Python:        "python3",
			ServiceScript: "scripts/detect_service.py",
			IdleTimeout:   30 * time.Second,
			Cooldown:      500 * time.Millisecond,
			MinConfidence: 0.4,
			MaxResults:    10,
			InputSize:     640,
			NMSThreshold:  0.45,
		},
		Camera: CameraConfig{
			Device: 0,
			Width:  1280,
			Height: 720,
			FPS:    30,
			Mirror: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Player: "player",
		},
		Plugins: PluginsConfig{
			Dir:      "plugins",
			Timeout:  5 * time.Second,
			Settings: map[string]map[string]any{},
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "objecthunter",
			Topic:    "objecthunter/events",
			QoS:      0,
		},
		Prompts: PromptsConfig{
			Style: "basic",
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Rules converts the game section into engine rules.
func (c *Config) Rules() (session.Rules, error) {
	rules := session.DefaultRules()

	if c.Game.DefaultDifficulty != "" {
		d, err := session.ParseDifficulty(c.Game.DefaultDifficulty)
		if err != nil {
			return session.Rules{}, fmt.Errorf("%w: game.default_difficulty: %v", ErrInvalid, err)
		}
		rules.DefaultDifficulty = d
	}

	for name, override := range c.Game.Difficulties {
		d, err := session.ParseDifficulty(name)
		if err != nil {
			return session.Rules{}, fmt.Errorf("%w: game.difficulties: %v", ErrInvalid, err)
		}
		lvl := rules.Levels[d]
		if override.Duration != 0 {
			lvl.Duration = override.Duration
		}
		if override.MinConfidence != nil {
			lvl.MinConfidence = *override.MinConfidence
		}
		if len(override.Objects) > 0 {
			lvl.Pool = normalizeLabels(override.Objects)
		}
		rules.Levels[d] = lvl
	}

	rules.CelebrationDelay = c.Game.CelebrationDelay
	rules.DoubleClickWindow = c.Game.DoubleClickWindow
	rules.SkipBudget = c.Game.SkipBudget
	rules.TransitionDuration = c.Game.TransitionDuration

	if err := rules.Validate(); err != nil {
		return session.Rules{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return rules, nil
}

// Validate checks the sections that are not covered by the engine rules.
func (c *Config) Validate() error {
	rules, err := c.Rules()
	if err != nil {
		return err
	}

	var problems []string
	for _, d := range session.Difficulties {
		// Detections under the floor never reach the engine.
		if lvl := rules.Level(d); lvl.MinConfidence < c.Detection.MinConfidence {
			problems = append(problems, fmt.Sprintf(
				"game.difficulties.%s.min_confidence %.2f is below detection.min_confidence %.2f",
				d, lvl.MinConfidence, c.Detection.MinConfidence))
		}
	}
	switch c.Detection.Backend {
	case "dnn", "service", "mock":
	default:
		problems = append(problems, fmt.Sprintf("detection.backend %q is not one of dnn, service, mock", c.Detection.Backend))
	}
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		problems = append(problems, "detection.min_confidence must be within [0,1]")
	}
	if c.Detection.MaxResults <= 0 {
		problems = append(problems, "detection.max_results must be positive")
	}
	if c.Detection.Cooldown < 0 {
		problems = append(problems, "detection.cooldown must not be negative")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		problems = append(problems, "camera.width and camera.height must be positive")
	}
	if c.Game.FrameRate <= 0 {
		problems = append(problems, "game.frame_rate must be positive")
	}
	if c.MQTT.QoS > 2 {
		problems = append(problems, "mqtt.qos must be 0, 1 or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		problems = append(problems, "mqtt.broker is required when mqtt is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// PluginSettings encodes each plugin's settings as the JSON object its requests carry.
func (c *Config) PluginSettings() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(c.Plugins.Settings))
	for name, settings := range c.Plugins.Settings {
		data, err := json.Marshal(settings)
		if err != nil {
			return nil, fmt.Errorf("plugin %s settings: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// FrameInterval is the render loop period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Game.FrameRate)
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			out = append(out, l)
		}
	}
	return out
}
