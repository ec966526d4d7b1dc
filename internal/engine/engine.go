package engine

import (
	"errors"
	"strings"
	"unicode"
)

var ErrTooShort = errors.New("word must be at least 2 letters")
var ErrWrongStartLetter = errors.New("word must start with the last letter of the previous word")
var ErrAlreadyUsed = errors.New("word already played")
var ErrWrongTurn = errors.New("not your turn")
var ErrNotPlaying = errors.New("game is not in progress")
var ErrAlreadyStarted = errors.New("game already started")
var ErrGameEnded = errors.New("game already ended")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Player int

const (
	Player1 Player = 1
	Player2 Player = 2
)

func (p Player) Other() Player { return 3 - p }

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

type EndReason string

const (
	EndTimeout   EndReason = "timeout"
	EndAbandoned EndReason = "abandoned"
)

// State is the full game snapshot exchanged between peers. Version bumps on
// every accepted transition; a snapshot only supersedes one with a lower
// version, so duplicate or out-of-order delivery is harmless.
type State struct {
	Version     int               `json:"version"`
	Ledger      []string          `json:"wordLedger"`
	CurrentTurn Player            `json:"currentTurn"`
	Scores      map[Player]int    `json:"scores"`
	// TurnSeconds is the fixed per-turn allotment. Snapshots always carry
	// the full value; each peer counts down locally.
	TurnSeconds int `json:"turnTimeRemaining"`
	Status      Status            `json:"status"`
	EndReason   EndReason         `json:"endReason,omitempty"`
	WinnerName  string            `json:"winnerName,omitempty"`
	Names       map[Player]string `json:"playerNames"`
}

// NewState seeds a waiting room. The seed word counts as the creator's
// opening word, so once a second player joins it is their turn to chain off
// it.
func NewState(creatorName, seedWord string, turnSeconds int) State {
	return State{
		Ledger:      []string{strings.ToUpper(seedWord)},
		CurrentTurn: Player1,
		Scores:      map[Player]int{Player1: 0, Player2: 0},
		TurnSeconds: turnSeconds,
		Status:      StatusWaiting,
		Names:       map[Player]string{Player1: creatorName},
	}
}

func (s State) Clone() State {
	c := s
	c.Ledger = append([]string(nil), s.Ledger...)
	c.Scores = make(map[Player]int, len(s.Scores))
	for p, v := range s.Scores {
		c.Scores[p] = v
	}
	c.Names = make(map[Player]string, len(s.Names))
	for p, n := range s.Names {
		c.Names[p] = n
	}
	return c
}

func (s State) LastWord() string {
	if len(s.Ledger) == 0 {
		return ""
	}
	return s.Ledger[len(s.Ledger)-1]
}

// Supersedes reports whether the remote snapshot should replace the local
// one. Equal versions cover both duplicate delivery and the publisher's own
// echo.
func Supersedes(local, remote State) bool {
	return remote.Version > local.Version
}

// Validate checks a candidate against the ledger history and the chain rule.
// The duplicate check runs before the start-letter check so replaying an old
// word always reports ErrAlreadyUsed.
func Validate(candidate string, ledger []string) error {
	word := strings.TrimSpace(candidate)
	if len([]rune(word)) < 2 {
		return ErrTooShort
	}
	for _, used := range ledger {
		if strings.EqualFold(used, word) {
			return ErrAlreadyUsed
		}
	}
	if len(ledger) > 0 {
		last := []rune(ledger[len(ledger)-1])
		first := []rune(word)[0]
		if unicode.ToLower(first) != unicode.ToLower(last[len(last)-1]) {
			return ErrWrongStartLetter
		}
	}
	return nil
}

// Score is the points awarded for an accepted word.
func Score(word string) int { return len([]rune(word)) }

type CommandType string

const (
	CmdJoin       CommandType = "Join"
	CmdSubmitWord CommandType = "SubmitWord"
	CmdTimeout    CommandType = "Timeout"
	CmdLeave      CommandType = "Leave"
)

type Command struct {
	Type   CommandType
	Player Player
	Name   string
	Word   string
}

type EventType string

const (
	EvtPlayerJoined EventType = "PlayerJoined"
	EvtWordAccepted EventType = "WordAccepted"
	EvtTurnAdvanced EventType = "TurnAdvanced"
	EvtGameEnded    EventType = "GameEnded"
)

type Event struct {
	Type   EventType
	Player Player
	Word   string
	Points int
	Reason EndReason
	Winner string
}

// Apply runs one command against a snapshot and returns the resulting events
// and state. It never mutates its input; rejected commands hand back the
// original state untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		if s.Status == StatusEnded {
			return nil, s, ErrGameEnded
		}
		if s.Status != StatusWaiting {
			return nil, s, ErrAlreadyStarted
		}
		next := s.Clone()
		next.Names[Player2] = cmd.Name
		next.Status = StatusPlaying
		next.CurrentTurn = Player2
		next.Version++
		events := []Event{
			{Type: EvtPlayerJoined, Player: Player2},
			{Type: EvtTurnAdvanced, Player: Player2},
		}
		return events, next, nil

	case CmdSubmitWord:
		if s.Status == StatusEnded {
			return nil, s, ErrGameEnded
		}
		if s.Status != StatusPlaying {
			return nil, s, ErrNotPlaying
		}
		if cmd.Player != s.CurrentTurn {
			return nil, s, ErrWrongTurn
		}
		if err := Validate(cmd.Word, s.Ledger); err != nil {
			return nil, s, err
		}
		word := strings.ToUpper(strings.TrimSpace(cmd.Word))
		points := Score(word)
		next := s.Clone()
		next.Ledger = append(next.Ledger, word)
		next.Scores[cmd.Player] += points
		next.CurrentTurn = cmd.Player.Other()
		next.Version++
		events := []Event{
			{Type: EvtWordAccepted, Player: cmd.Player, Word: word, Points: points},
			{Type: EvtTurnAdvanced, Player: next.CurrentTurn},
		}
		return events, next, nil

	case CmdTimeout:
		if s.Status == StatusEnded {
			return nil, s, ErrGameEnded
		}
		if s.Status != StatusPlaying {
			return nil, s, ErrNotPlaying
		}
		// Only the player currently holding the turn can time out. A stale
		// timer firing after the turn advanced lands here and is dropped.
		if cmd.Player != s.CurrentTurn {
			return nil, s, ErrWrongTurn
		}
		next := s.Clone()
		next.Status = StatusEnded
		next.EndReason = EndTimeout
		next.WinnerName = next.Names[cmd.Player.Other()]
		next.Version++
		return []Event{{Type: EvtGameEnded, Reason: EndTimeout, Winner: next.WinnerName}}, next, nil

	case CmdLeave:
		if s.Status == StatusEnded {
			return nil, s, ErrGameEnded
		}
		next := s.Clone()
		next.Status = StatusEnded
		next.EndReason = EndAbandoned
		next.WinnerName = ""
		next.Version++
		return []Event{{Type: EvtGameEnded, Reason: EndAbandoned}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}
