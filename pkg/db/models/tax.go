package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tax is a tax class with a base percentage. One row may be flagged as the default.
type Tax struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Title      string          `gorm:"column:title;not null"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(8,4);not null"`
	IsDefault  bool            `gorm:"column:is_default;not null;default:false"`
}

func (Tax) TableName() string { return "pos_taxes" }

func (t *Tax) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaxRule overrides a tax class percentage for a specific country.
type TaxRule struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TaxID      uuid.UUID       `gorm:"column:tax_id;type:uuid;not null"`
	Country    string          `gorm:"column:country;not null"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(8,4);not null"`
}

func (TaxRule) TableName() string { return "pos_tax_rules" }

func (r *TaxRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
