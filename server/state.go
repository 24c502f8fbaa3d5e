package server

// GameState 房间对战阶段
type GameState int

const (
	StateLobby GameState = iota
	StatePlacement
	StateTurns
	StatePostGame
)

func (s GameState) String() string {
	switch s {
	case StateLobby:
		return "LOBBY"
	case StatePlacement:
		return "PLACEMENT"
	case StateTurns:
		return "TURNS"
	case StatePostGame:
		return "POST_GAME"
	default:
		return "UNKNOWN"
	}
}

// InProgress 放置或回合阶段
func (s GameState) InProgress() bool {
	return s == StatePlacement || s == StateTurns
}
