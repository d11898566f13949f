package recorder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type journalRow struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	SessionID string          `gorm:"size:36;index"`
	Symbol    string          `gorm:"size:32;index"`
	Action    string          `gorm:"size:16"`
	Leg       string          `gorm:"size:16"`
	OrderID   string          `gorm:"size:64"`
	Side      string          `gorm:"size:8"`
	Kind      string          `gorm:"size:16"`
	Price     decimal.Decimal `gorm:"type:numeric"`
	Quantity  decimal.Decimal `gorm:"type:numeric"`
	Outcome   string          `gorm:"size:32"`
	Detail    string
	CreatedAt time.Time `gorm:"index"`
}

func (journalRow) TableName() string {
	return "order_journal"
}

func rowFromEntry(e Entry) journalRow {
	return journalRow{
		SessionID: e.SessionID,
		Symbol:    e.Symbol,
		Action:    string(e.Action),
		Leg:       e.Leg,
		OrderID:   e.OrderID,
		Side:      e.Side,
		Kind:      e.Kind,
		Price:     e.Price,
		Quantity:  e.Quantity,
		Outcome:   e.Outcome,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}

func (r journalRow) entry() Entry {
	return Entry{
		SessionID: r.SessionID,
		Symbol:    r.Symbol,
		Action:    Action(r.Action),
		Leg:       r.Leg,
		OrderID:   r.OrderID,
		Side:      r.Side,
		Kind:      r.Kind,
		Price:     r.Price,
		Quantity:  r.Quantity,
		Outcome:   r.Outcome,
		Detail:    r.Detail,
		CreatedAt: r.CreatedAt,
	}
}

// GormSink writes journal batches to PostgreSQL.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink migrates the journal table and returns a sink on db.
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&journalRow{}); err != nil {
		return nil, err
	}
	return &GormSink{db: db}, nil
}

func (s *GormSink) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]journalRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rowFromEntry(e))
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, len(rows)).Error
}

// Session loads the journal of one session in insertion order.
func (s *GormSink) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	var rows []journalRow
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}
