package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "Lobby", cfg.Lobby.Name)
	assert.Equal(t, DefaultRules(), cfg.Game)
	assert.Equal(t, TicksPerSecond, cfg.Frames.TicksPerSecond)
}

func TestLoadConfigOverlaysYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  log_level: debug
lobby:
  name: Harbor
game:
  tick: 500ms
  min_players: 3
  max_ships: 4
frames:
  ticks_per_second: 0
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "app.log", cfg.Server.LogFile, "untouched keys keep defaults")
	assert.Equal(t, "Harbor", cfg.Lobby.Name)
	assert.Equal(t, 500*time.Millisecond, cfg.Game.Tick)
	assert.Equal(t, 3, cfg.Game.MinPlayers)
	assert.Equal(t, 4, cfg.Game.MaxShips)
	assert.Equal(t, 15, cfg.Game.PlacementTicks)
	assert.Equal(t, 0, cfg.Frames.TicksPerSecond)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
lobby:
  name: ""
game:
  min_players: 1
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lobby.name")
	assert.Contains(t, err.Error(), "min_players")

	_, err = LoadConfig(writeConfig(t, "game: [oops"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGameRulesValidate(t *testing.T) {
	g := DefaultRules()
	require.NoError(t, g.Validate())

	bad := []func(*GameRules){
		func(g *GameRules) { g.Tick = 0 },
		func(g *GameRules) { g.AreaWidth = 0 },
		func(g *GameRules) { g.MaxShips = 0 },
		func(g *GameRules) { g.BlastRadius = -1 },
		func(g *GameRules) { g.ReadyTicks = 0 },
	}
	for i, mutate := range bad {
		g := DefaultRules()
		mutate(&g)
		assert.Error(t, g.Validate(), "case %d", i)
	}
}
