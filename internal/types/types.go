package types

import "wordchain/internal/engine"

type ClientMessage struct {
	Type string `json:"type"` // "submit_word" | "leave"
	Word string `json:"word,omitempty"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // "room" | "state" | "game_left" | "error"
	Code    string        `json:"code,omitempty"`
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"`
}
