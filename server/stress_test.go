package server

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStressConcurrentRoomTraffic 多个连接并发进出房间、准备、放船、攻击，同时有真实倒计时触发和管理端关闭房间
func TestStressConcurrentRoomTraffic(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	cfg := DefaultConfig()
	cfg.Game.Tick = time.Millisecond
	cfg.Game.SessionTicks = 200
	cfg.Frames = FrameConfig{TicksPerSecond: 200, SyncEvery: 2, Speed: 3}
	d := NewDirectory(cfg, RealScheduler)
	t.Cleanup(d.Shutdown)

	const (
		numPlayers   = 8
		opsPerPlayer = 400
		numCloses    = 30
	)

	players := make([]testClient, numPlayers)
	for i := range players {
		players[i] = connect(t, d, fmt.Sprintf("p%d", i), "")
	}
	require.NoError(t, d.CreateRoom("arena", players[0].s))

	var (
		wg     sync.WaitGroup
		ops    int64
		closes int64
	)
	start := time.Now()

	for i := range players {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(id)))
			s := players[id].s
			for j := 0; j < opsPerPlayer; j++ {
				atomic.AddInt64(&ops, 1)
				switch rng.Intn(10) {
				case 0:
					_ = d.CreateRoom("arena", s)
				case 1, 2:
					_ = d.JoinRoom("arena", s)
				case 3:
					_ = d.JoinRoom("", s)
				default:
					r := s.Room()
					if r == nil {
						continue
					}
					at := Point{X: rng.Intn(cfg.Game.AreaWidth), Y: rng.Intn(cfg.Game.AreaHeight)}
					switch rng.Intn(5) {
					case 0:
						r.Ready(s)
					case 1:
						r.PlaceShip(s, at)
					case 2:
						r.Attack(s, at)
					case 3:
						r.SetDirection(s, Point{X: rng.Intn(3) - 1, Y: rng.Intn(3) - 1})
					default:
						r.Chat(s, "*go*")
					}
				}
				if j%50 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numCloses; i++ {
			if d.CloseRoom("arena") == nil {
				atomic.AddInt64(&closes, 1)
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	wg.Wait()
	t.Logf("stress: %d ops, %d closes in %v", ops, closes, time.Since(start))

	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.RUnlock()

	for _, p := range players {
		assert.Equal(t, 1, rosterCount(rooms, p.s), "%s in exactly one roster", p.s)
		cur := p.s.Room()
		require.NotNil(t, cur, "%s has a room", p.s)
		assert.False(t, cur.Closed(), "%s points at a live room", p.s)
		assert.Contains(t, cur.Members(), p.s)
	}
	for _, r := range rooms {
		assert.NotEqual(t, "UNKNOWN", r.State().String())
		if r.IsLobby() {
			assert.Equal(t, StateLobby, r.State(), "the lobby never hosts a game")
		}
		members := map[int64]bool{}
		for _, m := range r.Members() {
			members[m.ID()] = true
		}
		for _, ship := range r.Ships() {
			assert.True(t, members[ship.Owner], "ship %d owned by a member of %s", ship.ID, r.Name())
		}
	}
}
