package server

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"battleroom/protocol"
)

var errPeerGone = errors.New("peer gone")

// fakeSender 记录发出的 envelope，可切换为发送失败
type fakeSender struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	closed bool
}

func (f *fakeSender) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errPeerGone
	}
	f.msgs = append(f.msgs, b)
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

func (f *fakeSender) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(f.msgs))
	for _, b := range f.msgs {
		env, err := protocol.DecodeEnvelope(b)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func (f *fakeSender) kinds(t *testing.T) []protocol.Kind {
	t.Helper()
	var out []protocol.Kind
	for _, env := range f.envelopes(t) {
		out = append(out, env.Type)
	}
	return out
}

// payloadsOf 解出某类消息的全部载荷
func payloadsOf[T any](t *testing.T, f *fakeSender, kind protocol.Kind) []T {
	t.Helper()
	var out []T
	for _, env := range f.envelopes(t) {
		if env.Type != kind {
			continue
		}
		v, err := protocol.DecodePayload[T](env)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

// chatTexts 收到的 MESSAGE 文本
func chatTexts(t *testing.T, f *fakeSender) []string {
	t.Helper()
	var out []string
	for _, c := range payloadsOf[protocol.Chat](t, f, protocol.KindMessage) {
		out = append(out, c.Text)
	}
	return out
}

// manualScheduler 只在 advance 时按到期顺序触发回调
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// advance 推进时间；回调在不持有调度器锁时执行，回调里新建的定时器也会在到期时触发
func (s *manualScheduler) advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var due []*manualTimer
		for _, t := range s.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.f()
	}
}

// pending 尚未到期也未取消的定时器数
func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// testConfig 1s 一个 tick，不启动更新循环
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Frames.TicksPerSecond = 0
	return cfg
}

func newTestDirectory(t *testing.T, cfg *Config) (*Directory, *manualScheduler) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	sched := &manualScheduler{}
	d := NewDirectory(cfg, sched)
	t.Cleanup(d.Shutdown)
	return d, sched
}

type testClient struct {
	s   *Session
	out *fakeSender
}

// connect 建立会话并进入指定房间（空名为大厅）
func connect(t *testing.T, d *Directory, name, room string) testClient {
	t.Helper()
	out := &fakeSender{}
	s := d.NewSession(name, out)
	require.NoError(t, d.JoinRoom(room, s))
	return testClient{s: s, out: out}
}

// observeLogs 临时替换全局 Log，测试结束后恢复
func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = prev })
	return logs
}
