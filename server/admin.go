package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// roomFromQuery ?room= 缺省为大厅
func roomFromQuery(d *Directory, w http.ResponseWriter, r *http.Request) (*Room, bool) {
	name := r.URL.Query().Get("room")
	if name == "" {
		return d.Lobby(), true
	}
	room, ok := d.Get(name)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return nil, false
	}
	return room, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间规则的读取与更新（热更新基本规则）
// GET /admin/config?room=battle-1  返回当前规则
// POST /admin/config?room=battle-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(d *Directory) http.HandlerFunc {
	type cfg struct {
		TickMs         *int64 `json:"tickMs,omitempty"`
		MinPlayers     *int   `json:"minPlayers,omitempty"`
		MaxShips       *int   `json:"maxShips,omitempty"`
		ShipHealth     *int   `json:"shipHealth,omitempty"`
		BlastRadius    *int   `json:"blastRadius,omitempty"`
		ReadyTicks     *int   `json:"readyTicks,omitempty"`
		PlacementTicks *int   `json:"placementTicks,omitempty"`
		SessionTicks   *int   `json:"sessionTicks,omitempty"`
		PostGameTicks  *int   `json:"postGameTicks,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := roomFromQuery(d, w, r)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			g := room.Rules()
			tick := g.Tick.Milliseconds()
			writeJSON(w, cfg{
				TickMs:         &tick,
				MinPlayers:     &g.MinPlayers,
				MaxShips:       &g.MaxShips,
				ShipHealth:     &g.ShipHealth,
				BlastRadius:    &g.BlastRadius,
				ReadyTicks:     &g.ReadyTicks,
				PlacementTicks: &g.PlacementTicks,
				SessionTicks:   &g.SessionTicks,
				PostGameTicks:  &g.PostGameTicks,
			})
		case http.MethodPost:
			var body cfg
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			err := room.UpdateRules(func(g *GameRules) {
				if body.TickMs != nil {
					g.Tick = time.Duration(*body.TickMs) * time.Millisecond
				}
				setInt(&g.MinPlayers, body.MinPlayers)
				setInt(&g.MaxShips, body.MaxShips)
				setInt(&g.ShipHealth, body.ShipHealth)
				setInt(&g.BlastRadius, body.BlastRadius)
				setInt(&g.ReadyTicks, body.ReadyTicks)
				setInt(&g.PlacementTicks, body.PlacementTicks)
				setInt(&g.SessionTicks, body.SessionTicks)
				setInt(&g.PostGameTicks, body.PostGameTicks)
			})
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
			Log.Infof("config updated: room=%s rules=%+v", room.Name(), room.Rules())
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=battle-1
func HandleMetrics(d *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := roomFromQuery(d, w, r)
		if !ok {
			return
		}
		info := room.Info()
		writeJSON(w, map[string]any{
			"room":    info.Name,
			"state":   info.State,
			"members": info.Members,
			"metrics": room.Metrics().Snapshot(),
		})
	}
}

// HandleRooms 列出所有房间
// GET /admin/rooms
func HandleRooms(d *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{"rooms": d.Rooms()})
	}
}

// HandleCloseRoom 关闭房间并把成员迁往大厅
// POST /admin/rooms/close?room=battle-1
func HandleCloseRoom(d *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Query().Get("room")
		if err := d.CloseRoom(name); err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, ErrRoomNotFound) {
				code = http.StatusNotFound
			}
			http.Error(w, err.Error(), code)
			return
		}
		Log.Infof("admin: closed room %s", name)
		writeJSON(w, map[string]any{"ok": true})
	}
}
