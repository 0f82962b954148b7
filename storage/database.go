// Package storage persists the trade journal: every validated fill and the
// open/closed history of positions, for restart recovery and reporting.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	db *gorm.DB
}

// Models

// TradeRecord is one validated fill committed into position state.
type TradeRecord struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	Symbol    string          `gorm:"index"`
	Side      string          // "BUY" or "SELL"
	Price     decimal.Decimal `gorm:"type:decimal(20,8)"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,8)"`
	Paper     bool
	FilledAt  time.Time
	CreatedAt time.Time
}

// PositionRecord is the open/closed history of positions.
type PositionRecord struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	Symbol     string          `gorm:"index"`
	EntryPrice decimal.Decimal `gorm:"type:decimal(20,8)"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,8)"`
	StopPrice  decimal.Decimal `gorm:"type:decimal(20,8)"`
	GainTarget decimal.Decimal `gorm:"type:decimal(20,8)"`
	ExitPrice  decimal.Decimal `gorm:"type:decimal(20,8)"`
	PnL        decimal.Decimal `gorm:"column:pnl;type:decimal(20,8)"`
	Status     string          `gorm:"index"` // "OPEN" or "CLOSED"
	OpenedAt   time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New opens the journal at dbPath. A postgres:// URL selects the Postgres
// driver; anything else is treated as a sqlite file path.
func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), gormCfg)
	} else {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create database dir: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(dbPath), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRecord{}, &PositionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("💾 Database connected")
	return &Database{db: db}, nil
}

// LogTrade records a validated fill.
func (d *Database) LogTrade(symbol, side string, price, quantity decimal.Decimal, paper bool, filledAt time.Time) error {
	rec := &TradeRecord{
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: quantity,
		Paper:    paper,
		FilledAt: filledAt,
	}
	if err := d.db.Create(rec).Error; err != nil {
		log.Error().Err(err).Msg("Failed to log trade")
		return err
	}
	return nil
}

// OpenPosition records a newly opened position.
func (d *Database) OpenPosition(symbol string, entry, quantity, stop, gainTarget decimal.Decimal, openedAt time.Time) error {
	rec := &PositionRecord{
		Symbol:     symbol,
		EntryPrice: entry,
		Quantity:   quantity,
		StopPrice:  stop,
		GainTarget: gainTarget,
		Status:     "OPEN",
		OpenedAt:   openedAt,
	}
	return d.db.Create(rec).Error
}

// ClosePosition marks the latest open position for symbol as closed.
func (d *Database) ClosePosition(symbol string, exitPrice decimal.Decimal, closedAt time.Time) error {
	var rec PositionRecord
	err := d.db.Where("symbol = ? AND status = ?", symbol, "OPEN").
		Order("opened_at DESC").
		First(&rec).Error
	if err != nil {
		return fmt.Errorf("find open position for %s: %w", symbol, err)
	}

	pnl := exitPrice.Sub(rec.EntryPrice).Mul(rec.Quantity)
	return d.db.Model(&rec).Updates(map[string]interface{}{
		"status":     "CLOSED",
		"exit_price": exitPrice,
		"pnl":        pnl,
		"closed_at":  closedAt,
	}).Error
}

// UpdateStopPrice records a replaced stop order on the open position.
func (d *Database) UpdateStopPrice(symbol string, stop decimal.Decimal) error {
	return d.db.Model(&PositionRecord{}).
		Where("symbol = ? AND status = ?", symbol, "OPEN").
		Update("stop_price", stop).Error
}

// OpenPositions returns all positions still marked open.
func (d *Database) OpenPositions() ([]PositionRecord, error) {
	var recs []PositionRecord
	err := d.db.Where("status = ?", "OPEN").Order("opened_at DESC").Find(&recs).Error
	return recs, err
}

// RecentTrades returns the last limit fills, newest first.
func (d *Database) RecentTrades(limit int) ([]TradeRecord, error) {
	var recs []TradeRecord
	err := d.db.Order("filled_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
