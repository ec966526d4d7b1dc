package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres backs the room store with a rooms table.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate rooms table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Create(ctx context.Context, rec *Record) error {
	err := p.db.WithContext(ctx).Create(rec).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}

func (p *Postgres) GetByCode(ctx context.Context, code string) (*Record, error) {
	var rec Record
	err := p.db.WithContext(ctx).Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) Update(ctx context.Context, rec *Record) error {
	return p.db.WithContext(ctx).Save(rec).Error
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	return p.db.WithContext(ctx).Delete(&Record{}, "id = ?", id).Error
}
