package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"battleroom/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 1 << 16
)

// ClientConn 负责发送（写）数据到客户端的轻量包装，实现 Sender
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, queue int) *ClientConn {
	if queue <= 0 {
		queue = 64
	}
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, queue),
	}
}

// Send 将要发送的消息压入队列（非阻塞）；队列满说明对端读得太慢，按发送失败处理
func (c *ClientConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close 关闭发送队列，写协程随后关闭底层连接
func (c *ClientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时发 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并分发；解码失败只记录，不断开连接
func (c *ClientConn) readPump(d *Directory, s *Session) {
	defer c.ws.Close()
	// 读泵退出时，离开房间并关闭会话
	defer d.Disconnect(s)
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Warnf("ws %s: read: %v", s, err)
			}
			return
		}
		env, err := protocol.DecodeEnvelope(payload)
		if err != nil {
			Log.Warnf("ws %s: bad envelope: %v", s, err)
			continue
		}
		if err := d.Dispatch(s, env); err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				Log.Warnf("ws %s: %v", s, de)
				continue
			}
			Log.Errorf("ws %s: dispatch %s: %v", s, env.Type, err)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?name=alice&room=battle-1（room 缺省进入大厅）
func HandleWS(d *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			http.Error(w, "missing name query", http.StatusBadRequest)
			return
		}
		room := r.URL.Query().Get("room")

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnf("upgrade error: %v", err)
			return
		}

		client := NewClientConn(ws, d.cfg.Server.SendQueue)
		s := d.NewSession(name, client)
		go client.writePump()

		b, err := protocol.Encode(protocol.KindClientID, protocol.ClientID{ClientID: s.ID(), ClientName: s.Name()})
		if err == nil {
			err = s.Send(b)
		}
		if err != nil {
			Log.Errorf("ws %s: send client id: %v", s, err)
			d.Disconnect(s)
			return
		}
		Log.Infof("ws %s: connected from %s", s, r.RemoteAddr)
		if err := d.JoinRoom(room, s); err != nil && room != "" {
			// 指定的房间不存在时落到大厅
			_ = d.JoinRoom("", s)
		}
		go client.readPump(d, s)
	}
}
