package engine

import (
	"errors"
	"testing"
)

func newPlayingState() State {
	s := NewState("Alice", "APPLE", 15)
	_, s, _ = Apply(s, Command{Type: CmdJoin, Player: Player2, Name: "Bob"})
	return s
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		ledger    []string
		wantErr   error
	}{
		{
			name:      "accepts a chained word",
			candidate: "elephant",
			ledger:    []string{"APPLE"},
			wantErr:   nil,
		},
		{
			name:      "single letter is too short",
			candidate: "a",
			ledger:    []string{"APPLE"},
			wantErr:   ErrTooShort,
		},
		{
			name:      "whitespace does not count as length",
			candidate: "  e  ",
			ledger:    []string{"APPLE"},
			wantErr:   ErrTooShort,
		},
		{
			name:      "wrong start letter",
			candidate: "BANANA",
			ledger:    []string{"APPLE"},
			wantErr:   ErrWrongStartLetter,
		},
		{
			name:      "duplicate is rejected case-insensitively",
			candidate: "aPpLe",
			ledger:    []string{"EMU", "UKULELE", "APPLE"},
			wantErr:   ErrAlreadyUsed,
		},
		{
			name:      "replayed word reports AlreadyUsed even off-chain",
			candidate: "ELEPHANT",
			ledger:    []string{"APPLE", "ELEPHANT"},
			wantErr:   ErrAlreadyUsed,
		},
		{
			name:      "chain comparison is case-insensitive",
			candidate: "eagle",
			ledger:    []string{"APPLE", "ELEPHANT", "TREE"},
			wantErr:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.candidate, tc.ledger)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate(%q): got %v, want %v", tc.candidate, err, tc.wantErr)
			}
		})
	}
}

func TestJoinStartsGameWithJoinerTurn(t *testing.T) {
	s := NewState("Alice", "APPLE", 15)
	if s.Status != StatusWaiting || s.CurrentTurn != Player1 {
		t.Fatalf("unexpected initial state: %+v", s)
	}

	events, next, err := Apply(s, Command{Type: CmdJoin, Player: Player2, Name: "Bob"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusPlaying {
		t.Fatalf("want playing, got %s", next.Status)
	}
	if next.CurrentTurn != Player2 {
		t.Fatalf("joiner should answer the seed word, turn = %d", next.CurrentTurn)
	}
	if next.Names[Player2] != "Bob" {
		t.Fatalf("player2 name not recorded: %+v", next.Names)
	}
	if next.Version != s.Version+1 {
		t.Fatalf("version should bump on join: %d -> %d", s.Version, next.Version)
	}
	if !containsEvent(events, EvtPlayerJoined) {
		t.Fatalf("expected EvtPlayerJoined, got %+v", events)
	}
}

func TestAcceptedWordScoresAndFlipsTurn(t *testing.T) {
	s := newPlayingState()

	events, next, err := Apply(s, Command{Type: CmdSubmitWord, Player: Player2, Word: "elephant"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Scores[Player2] != 8 {
		t.Fatalf("want score 8, got %d", next.Scores[Player2])
	}
	if next.CurrentTurn != Player1 {
		t.Fatalf("turn should flip to player1, got %d", next.CurrentTurn)
	}
	if next.LastWord() != "ELEPHANT" {
		t.Fatalf("ledger should hold the normalized word, got %q", next.LastWord())
	}
	if !containsEvent(events, EvtWordAccepted) {
		t.Fatalf("expected EvtWordAccepted, got %+v", events)
	}
}

func TestRejectedWordLeavesStateUntouched(t *testing.T) {
	s := newPlayingState()
	_, s, _ = Apply(s, Command{Type: CmdSubmitWord, Player: Player2, Word: "ELEPHANT"})

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{
			name:    "duplicate word",
			cmd:     Command{Type: CmdSubmitWord, Player: Player1, Word: "ELEPHANT"},
			wantErr: ErrAlreadyUsed,
		},
		{
			name:    "too short",
			cmd:     Command{Type: CmdSubmitWord, Player: Player1, Word: "a"},
			wantErr: ErrTooShort,
		},
		{
			name:    "out of turn",
			cmd:     Command{Type: CmdSubmitWord, Player: Player2, Word: "TANGERINE"},
			wantErr: ErrWrongTurn,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, next, err := Apply(s, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
			if next.Version != s.Version || len(next.Ledger) != len(s.Ledger) ||
				next.CurrentTurn != s.CurrentTurn ||
				next.Scores[Player1] != s.Scores[Player1] ||
				next.Scores[Player2] != s.Scores[Player2] {
				t.Fatalf("rejected command mutated state: %+v -> %+v", s, next)
			}
		})
	}
}

func TestTurnsAlternateAndScoresNeverDecrease(t *testing.T) {
	s := newPlayingState()
	words := []string{"ELEPHANT", "TREE", "EAGLE", "EMU", "UKULELE"}

	turn := s.CurrentTurn
	version := s.Version
	for _, w := range words {
		prev := s
		var err error
		_, s, err = Apply(s, Command{Type: CmdSubmitWord, Player: turn, Word: w})
		if err != nil {
			t.Fatalf("submit %q: %v", w, err)
		}
		if s.CurrentTurn != turn.Other() {
			t.Fatalf("after %q turn = %d, want %d", w, s.CurrentTurn, turn.Other())
		}
		if s.Version != version+1 {
			t.Fatalf("version did not bump exactly once: %d -> %d", version, s.Version)
		}
		if s.Scores[Player1] < prev.Scores[Player1] || s.Scores[Player2] < prev.Scores[Player2] {
			t.Fatalf("score decreased: %+v -> %+v", prev.Scores, s.Scores)
		}
		if s.Scores[turn]-prev.Scores[turn] != Score(w) {
			t.Fatalf("score delta for %q = %d, want %d", w, s.Scores[turn]-prev.Scores[turn], Score(w))
		}
		turn = s.CurrentTurn
		version = s.Version
	}
}

func TestTimeoutEndsGameForOtherPlayer(t *testing.T) {
	s := newPlayingState() // Bob's turn

	events, next, err := Apply(s, Command{Type: CmdTimeout, Player: Player2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusEnded || next.EndReason != EndTimeout {
		t.Fatalf("want ended by timeout, got %+v", next)
	}
	if next.WinnerName != "Alice" {
		t.Fatalf("winner should be the other player, got %q", next.WinnerName)
	}
	if !containsEvent(events, EvtGameEnded) {
		t.Fatalf("expected EvtGameEnded, got %+v", events)
	}
}

func TestTimeoutGuards(t *testing.T) {
	s := newPlayingState()

	if _, _, err := Apply(s, Command{Type: CmdTimeout, Player: Player1}); !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("stale timer for the passive player must be dropped, got %v", err)
	}

	_, ended, err := Apply(s, Command{Type: CmdTimeout, Player: Player2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// Second commit from the racing peer clock is a no-op.
	if _, _, err := Apply(ended, Command{Type: CmdTimeout, Player: Player2}); !errors.Is(err, ErrGameEnded) {
		t.Fatalf("want ErrGameEnded on double commit, got %v", err)
	}
}

func TestLeaveEndsWithoutWinner(t *testing.T) {
	s := newPlayingState()

	_, next, err := Apply(s, Command{Type: CmdLeave, Player: Player1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusEnded || next.EndReason != EndAbandoned {
		t.Fatalf("want ended by abandonment, got %+v", next)
	}
	if next.WinnerName != "" {
		t.Fatalf("abandonment has no winner, got %q", next.WinnerName)
	}
}

func TestSupersedes(t *testing.T) {
	local := newPlayingState()

	newer := local.Clone()
	newer.Version++
	if !Supersedes(local, newer) {
		t.Fatalf("newer snapshot must supersede")
	}
	if Supersedes(local, local.Clone()) {
		t.Fatalf("duplicate snapshot must not supersede")
	}
	older := local.Clone()
	older.Version--
	if Supersedes(local, older) {
		t.Fatalf("stale snapshot must not supersede")
	}
}

func containsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
