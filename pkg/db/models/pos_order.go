package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
)

// POSOrder is the read model of an order placed at the till. Checkout owns the writes.
type POSOrder struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Code          string              `gorm:"column:code"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(15,4);not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;not null"`
}

func (POSOrder) TableName() string { return "pos_orders" }
