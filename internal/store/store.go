// Package store is the persisted room record boundary. The canonical copy of
// a game lives here; sessions write full snapshots and converge through them.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("room not found")
var ErrDuplicateCode = errors.New("room code already in use")

const (
	GameTypeWordChain = "wordchain"
	MaxPlayers        = 2
)

// Record is one room row. State holds the GameState snapshot as JSON.
type Record struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:8" json:"code"`
	GameType    string    `gorm:"size:32" json:"gameType"`
	Status      string    `gorm:"size:16" json:"status"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	State       []byte    `gorm:"type:jsonb" json:"state"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Record) TableName() string { return "rooms" }

// Store is the room store collaborator. Update is a full-record overwrite;
// racing writers are tolerated and readers converge via the snapshot version.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	GetByCode(ctx context.Context, code string) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
}
