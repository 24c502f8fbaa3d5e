package server

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateSender 首次 armed 后的发送会阻塞，直到 release 关闭
type gateSender struct {
	fakeSender
	once    sync.Once
	armed   chan struct{}
	entered chan struct{}
	release chan struct{}
}

func newGateSender() *gateSender {
	return &gateSender{armed: make(chan struct{}), entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateSender) Send(b []byte) error {
	select {
	case <-g.armed:
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	default:
	}
	return g.fakeSender.Send(b)
}

func rosterCount(rooms []*Room, s *Session) int {
	n := 0
	for _, r := range rooms {
		for _, m := range r.Members() {
			if m == s {
				n++
			}
		}
	}
	return n
}

func TestCloseMigrationSkipsMemberThatMovedOn(t *testing.T) {
	d, _ := newTestDirectory(t, nil)
	gate := newGateSender()
	alice := d.NewSession("alice", gate)
	require.NoError(t, d.JoinRoom("", alice))
	require.NoError(t, d.CreateRoom("x", alice))
	bob := connect(t, d, "bob", "x")
	carol := connect(t, d, "carol", "")
	require.NoError(t, d.CreateRoom("y", carol.s))
	x, _ := d.Get("x")
	y, _ := d.Get("y")

	close(gate.armed)
	done := make(chan error, 1)
	go func() { done <- d.CloseRoom("x") }()

	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("migration never reached alice")
	}
	// alice 的迁移卡在发送上，bob 此时自行去 y
	require.NoError(t, d.JoinRoom("y", bob.s))
	close(gate.release)
	require.NoError(t, <-done)

	rooms := []*Room{d.Lobby(), x, y}
	assert.Equal(t, 1, rosterCount(rooms, bob.s), "bob is in exactly one roster")
	assert.Same(t, y, bob.s.Room())
	assert.NotContains(t, d.Lobby().Members(), bob.s)
	assert.Equal(t, 1, rosterCount(rooms, alice))
	assert.Same(t, d.Lobby(), alice.Room())
}

func TestJoinRefusesSessionInAnotherRoom(t *testing.T) {
	d, _ := newTestDirectory(t, nil)
	a := connect(t, d, "alice", "")
	require.NoError(t, d.CreateRoom("x", a.s))
	x, _ := d.Get("x")

	assert.ErrorIs(t, d.Lobby().Join(a.s), ErrInOtherRoom)
	assert.NotContains(t, d.Lobby().Members(), a.s)
	assert.Same(t, x, a.s.Room())
}

func TestFreshRoomSurvivesFramesAndRuleUpdates(t *testing.T) {
	d, _ := newTestDirectory(t, nil)
	alice := connect(t, d, "alice", "")
	r, err := d.create("battle")
	require.NoError(t, err)

	r.Step()
	require.NoError(t, r.UpdateRules(func(g *GameRules) { g.MaxShips = 5 }))
	assert.False(t, r.Closed())

	require.NoError(t, d.JoinRoom("battle", alice.s))
	assert.Same(t, r, alice.s.Room())
	assert.Equal(t, 5, r.Rules().MaxShips)
}

func TestCloseIfUnused(t *testing.T) {
	d, _ := newTestDirectory(t, nil)
	a := connect(t, d, "alice", "")
	r, err := d.create("spare")
	require.NoError(t, err)
	require.NoError(t, d.CreateRoom("busy", a.s))
	busy, _ := d.Get("busy")

	assert.False(t, busy.CloseIfUnused())
	assert.True(t, r.CloseIfUnused())
	_, ok := d.Get("spare")
	assert.False(t, ok)
	assert.False(t, r.CloseIfUnused(), "already closed")
}
