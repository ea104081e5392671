package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
)

// RegisterSession is one cash drawer shift. Close is a one-way update; closed rows are never reopened.
type RegisterSession struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_pos_registers_open_user,where:status = 'open'"`
	Status       enums.RegisterStatus `gorm:"column:status;not null"`
	CashStart    decimal.Decimal      `gorm:"column:cash_start;type:numeric(15,4);not null"`
	CashSales    decimal.NullDecimal  `gorm:"column:cash_sales;type:numeric(15,4)"`
	CashEnd      decimal.NullDecimal  `gorm:"column:cash_end;type:numeric(15,4)"`
	ActualCash   decimal.NullDecimal  `gorm:"column:actual_cash;type:numeric(15,4)"`
	Difference   decimal.NullDecimal  `gorm:"column:difference;type:numeric(15,4)"`
	Notes        string               `gorm:"column:notes"`
	ClosingNotes string               `gorm:"column:closing_notes"`
	OpenedAt     time.Time            `gorm:"column:opened_at;not null"`
	ClosedAt     *time.Time           `gorm:"column:closed_at"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (RegisterSession) TableName() string { return "pos_registers" }

func (s *RegisterSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
