package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务端整体配置（YAML）
type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		LogFile   string `yaml:"log_file"`
		LogLevel  string `yaml:"log_level"`
		LogStderr bool   `yaml:"log_stderr"`
		SendQueue int    `yaml:"send_queue"` // 每个连接的出站缓冲
	} `yaml:"server"`

	Lobby struct {
		Name string `yaml:"name"`
	} `yaml:"lobby"`

	Game   GameRules   `yaml:"game"`
	Frames FrameConfig `yaml:"frames"`
}

// GameRules 房间内对战规则，倒计时均以 Tick 计
type GameRules struct {
	Tick           time.Duration `yaml:"tick"`
	MinPlayers     int           `yaml:"min_players"`
	MaxShips       int           `yaml:"max_ships"`
	ShipSize       int           `yaml:"ship_size"`
	ShipHealth     int           `yaml:"ship_health"`
	BlastRadius    int           `yaml:"blast_radius"`
	AreaWidth      int           `yaml:"area_width"`
	AreaHeight     int           `yaml:"area_height"`
	ReadyTicks     int           `yaml:"ready_ticks"`
	PlacementTicks int           `yaml:"placement_ticks"`
	SessionTicks   int           `yaml:"session_ticks"`
	PostGameTicks  int           `yaml:"post_game_ticks"`
}

// FrameConfig 房间移动更新循环；TicksPerSecond 为 0 时不启动
type FrameConfig struct {
	TicksPerSecond int `yaml:"ticks_per_second"`
	SyncEvery      int `yaml:"sync_every"`
	Speed          int `yaml:"speed"`
}

// DefaultRules 默认对战规则
func DefaultRules() GameRules {
	return GameRules{
		Tick:           time.Second,
		MinPlayers:     2,
		MaxShips:       10,
		ShipSize:       50,
		ShipHealth:     3,
		BlastRadius:    50,
		AreaWidth:      600,
		AreaHeight:     600,
		ReadyTicks:     5,
		PlacementTicks: 15,
		SessionTicks:   60 * 60,
		PostGameTicks:  10,
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	c := &Config{}
	c.Server.Addr = ":8080"
	c.Server.LogFile = "app.log"
	c.Server.LogLevel = "info"
	c.Server.SendQueue = 256
	c.Lobby.Name = "Lobby"
	c.Game = DefaultRules()
	c.Frames = FrameConfig{TicksPerSecond: TicksPerSecond, SyncEvery: 40, Speed: 3}
	return c
}

// LoadConfig 在默认值之上叠加 YAML 文件；path 为空时只用默认值
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, c.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate 检查配置的基本约束
func (c *Config) Validate() error {
	var errs []error
	if c.Lobby.Name == "" {
		errs = append(errs, errors.New("lobby.name must not be empty"))
	}
	if c.Server.SendQueue <= 0 {
		errs = append(errs, errors.New("server.send_queue must be > 0"))
	}
	if c.Frames.TicksPerSecond < 0 || c.Frames.SyncEvery < 0 {
		errs = append(errs, errors.New("frames values must be >= 0"))
	}
	if err := c.Game.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate 检查规则取值
func (g GameRules) Validate() error {
	switch {
	case g.Tick <= 0:
		return errors.New("game.tick must be > 0")
	case g.MinPlayers < 2:
		return errors.New("game.min_players must be >= 2")
	case g.AreaWidth <= 0 || g.AreaHeight <= 0:
		return errors.New("game area must be positive")
	case g.MaxShips <= 0 || g.ShipHealth <= 0 || g.ShipSize <= 0:
		return errors.New("ship limits must be positive")
	case g.BlastRadius < 0:
		return errors.New("game.blast_radius must be >= 0")
	case g.ReadyTicks <= 0 || g.PlacementTicks <= 0 || g.SessionTicks <= 0 || g.PostGameTicks <= 0:
		return errors.New("countdown ticks must be positive")
	}
	return nil
}
