package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
)

// Discount is a coupon or promotion definition. Quantity caps redemptions when positive.
type Discount struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code       string             `gorm:"column:code;not null"`
	Title      string             `gorm:"column:title"`
	Type       enums.DiscountKind `gorm:"column:type;not null"`
	TypeOption enums.DiscountType `gorm:"column:type_option;not null"`
	Value      decimal.Decimal    `gorm:"column:value;type:numeric(15,4);not null"`
	StartDate  time.Time          `gorm:"column:start_date;not null"`
	EndDate    *time.Time         `gorm:"column:end_date"`
	Quantity   int                `gorm:"column:quantity;not null;default:0"`
	TotalUsed  int                `gorm:"column:total_used;not null;default:0"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (Discount) TableName() string { return "pos_discounts" }

func (d *Discount) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
