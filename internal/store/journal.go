// Package store persists the trading journal in SQLite via Gorm: every
// order submission and every settled trade, queryable by the HTTP status
// surface after the fact.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"upbot/internal/agent"
	"upbot/internal/exchange"
)

type OrderRecord struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	OrderID    string         `gorm:"column:order_id;index"`
	Instrument string         `gorm:"column:instrument;index"`
	Side       string         `gorm:"column:side"`
	Price      float64        `gorm:"column:price"`
	Requested  float64        `gorm:"column:requested"`
	Note       string         `gorm:"column:note"`
	Raw        datatypes.JSON `gorm:"column:raw;type:TEXT"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (OrderRecord) TableName() string { return "order_records" }

type TradeRecord struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	Instrument string    `gorm:"column:instrument;index"`
	Side       string    `gorm:"column:side"`
	Price      float64   `gorm:"column:price"`
	Amount     float64   `gorm:"column:amount"`
	Profit     float64   `gorm:"column:profit"`
	TradedAt   time.Time `gorm:"column:traded_at"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (TradeRecord) TableName() string { return "trade_records" }

// Journal is the Gorm-backed implementation of the agent's journal.
type Journal struct {
	db *gorm.DB
}

var _ agent.Journal = (*Journal)(nil)

func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	// mattn/go-sqlite3 parameter names; _pragma=... is modernc syntax and
	// gets ignored silently
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&OrderRecord{}, &TradeRecord{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads, low lock contention
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) RecordOrder(ctx context.Context, order exchange.Order, note string) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	rec := OrderRecord{
		OrderID:    order.ID,
		Instrument: order.Instrument,
		Side:       string(order.Side),
		Price:      order.Price,
		Requested:  order.Requested,
		Note:       note,
		Raw:        datatypes.JSON(raw),
		CreatedAt:  time.Now(),
	}
	return j.db.WithContext(ctx).Create(&rec).Error
}

func (j *Journal) RecordTrade(ctx context.Context, trade agent.Trade) error {
	rec := TradeRecord{
		Instrument: trade.Instrument,
		Side:       string(trade.Side),
		Price:      trade.Price,
		Amount:     trade.Amount,
		Profit:     trade.Profit,
		TradedAt:   trade.At,
		CreatedAt:  time.Now(),
	}
	return j.db.WithContext(ctx).Create(&rec).Error
}

// RecentTrades returns the latest settled trades, newest first.
func (j *Journal) RecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []TradeRecord
	err := j.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecentOrders returns the latest order submissions, newest first.
func (j *Journal) RecentOrders(ctx context.Context, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []OrderRecord
	err := j.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
