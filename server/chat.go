package server

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"battleroom/protocol"
)

// CommandTrigger 聊天指令前缀
const CommandTrigger = "/"

const (
	cmdCreateRoom = "createroom"
	cmdJoinRoom   = "joinroom"
	cmdReady      = "ready"
	cmdSayHi      = "sayhi"
	cmdRoll       = "roll"
	cmdFlip       = "flip"
)

// ParseCommand 拆出指令名（小写）和参数；不以触发符开头时 ok 为 false
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	if !strings.HasPrefix(text, CommandTrigger) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, CommandTrigger))
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// FormatMessage 依次执行：去掉外部传入的粗体标签、*text* 转粗体、[r]text[r] 转红色
func FormatMessage(text string) string {
	out := strings.ReplaceAll(text, "<b>", "")
	out = strings.ReplaceAll(out, "</b>", "")
	if strings.Contains(out, "*") {
		out = alternate(out, "*", "<b>", "</b>")
	}
	if strings.Contains(out, "[r]") {
		out = alternate(out, "[r]", "<font color='red'>", "</font>")
	}
	return out
}

// alternate 偶数段原样保留，奇数段包裹；末尾的空段被丢弃，所以落单的分隔符直接消失
func alternate(text, delim, openTag, closeTag string) string {
	parts := strings.Split(text, delim)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(openTag)
		b.WriteString(p)
		b.WriteString(closeTag)
	}
	return b.String()
}

// Chat 聊天入口：先经过指令拦截，其余消息格式化后广播
func (r *Room) Chat(s *Session, text string) {
	cmd, args, isCmd := ParseCommand(text)
	if !isCmd {
		r.broadcastChat(s, FormatMessage(text))
		return
	}
	Log.Debugf("room %s: command %q from %s", r.Name(), cmd, s)
	switch cmd {
	case cmdCreateRoom, cmdJoinRoom:
		if len(args) == 0 {
			r.notify(s, fmt.Sprintf("Usage: /%s <room>", cmd))
			return
		}
		// 跨房间操作不持有本房间锁
		var err error
		if cmd == cmdCreateRoom {
			err = r.host.CreateRoom(args[0], s)
		} else {
			err = r.host.JoinRoom(args[0], s)
		}
		if err != nil {
			Log.Debugf("room %s: /%s %s: %v", r.Name(), cmd, args[0], err)
		}
	case cmdReady:
		if r.Ready(s) {
			r.broadcastChat(s, "Ready to go!")
		}
	case cmdSayHi:
		r.broadcastChat(s, "hi")
	case cmdRoll:
		r.broadcastChat(s, strconv.Itoa(rand.Intn(6)+1))
	case cmdFlip:
		side := "Tails"
		if rand.Intn(2) == 1 {
			side = "Heads"
		}
		r.broadcastChat(s, side)
	default:
		// 不是已知指令，按原文广播
		r.broadcastChat(s, text)
	}
}

func (r *Room) broadcastChat(s *Session, text string) {
	r.mu.Lock()
	defer r.unlock()
	if r.find(s) == nil {
		Log.Warnf("room %s: message from %s, not in roster", r.name, s)
		return
	}
	r.broadcastLocked(protocol.KindMessage, protocol.Chat{
		ClientID: s.ID(), ClientName: s.Name(), Text: text, MessageID: uuid.NewString(),
	})
}

func (r *Room) notify(s *Session, text string) {
	r.mu.Lock()
	defer r.unlock()
	r.systemLocked(s, text)
}

// DirectMessage 私信只发给目标和发送者，不经过房间广播
func (r *Room) DirectMessage(s *Session, target, text string) {
	r.mu.Lock()
	defer r.unlock()
	if r.find(s) == nil {
		Log.Warnf("room %s: dm from %s, not in roster", r.name, s)
		return
	}
	to := r.findByName(target)
	if to == nil {
		r.systemLocked(s, fmt.Sprintf("User %s is not in this room", target))
		return
	}
	dm := protocol.DirectMessage{ClientID: s.ID(), Target: to.Session.Name(), Text: text, MessageID: uuid.NewString()}
	r.sendLocked(to.Session, protocol.KindDM, dm)
	if to.Session != s {
		r.sendLocked(s, protocol.KindDM, dm)
	}
}

// Mute 修改发送者自己的屏蔽名单并回执；屏蔽自己被直接拒绝
func (r *Room) Mute(s *Session, target string, mute bool) {
	r.mu.Lock()
	defer r.unlock()
	if r.find(s) == nil {
		Log.Warnf("room %s: mute from %s, not in roster", r.name, s)
		return
	}
	to := r.findByName(target)
	if to == nil {
		r.systemLocked(s, fmt.Sprintf("User %s is not in this room", target))
		return
	}
	user := MutedUser{ID: to.Session.ID(), Name: to.Session.Name()}
	kind := protocol.KindMute
	ack, ok := "", false
	if mute {
		ack, ok = s.Mutes().Mute(s.ID(), user)
	} else {
		kind = protocol.KindUnmute
		ack, ok = s.Mutes().Unmute(s.ID(), user)
	}
	if !ok {
		Log.Debugf("room %s: %s tried to %s themselves", r.name, s, kind)
		return
	}
	r.sendLocked(s, kind, protocol.Mute{
		MuterID: s.ID(), MuteeID: user.ID, Mutee: user.Name, Message: ack, MessageID: uuid.NewString(),
	})
}
