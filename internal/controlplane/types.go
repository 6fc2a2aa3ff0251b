package controlplane

// Mode selects what the daemon does with a classified opportunity.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeAlerts Mode = "alerts"
	ModePaper  Mode = "paper"
)

// State is the live-tunable control-plane switch, file-backed and polled.
// Field set and defaults mirror original_source/botctl.py's state dict.
type State struct {
	Enabled     bool    `json:"enabled"`
	Mode        Mode    `json:"mode"`
	Bankroll    float64 `json:"bankroll"`
	MaxPerTrade float64 `json:"max_per_trade"`
	MinBufEdge  float64 `json:"min_buf_edge"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Default returns the state used when no control-plane file exists yet.
func Default() State {
	return State{
		Enabled:     false,
		Mode:        ModeOff,
		Bankroll:    1000.0,
		MaxPerTrade: 50.0,
		MinBufEdge:  0.02,
	}
}
