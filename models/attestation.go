package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentFields is the payment form as submitted. It is never persisted in
// clear text.
type PaymentFields struct {
	Name   string `json:"name" binding:"required"`
	Number string `json:"number" binding:"required"`
	Expiry string `json:"expiry" binding:"required"`
	CVV    string `json:"cvv" binding:"required"`
}

// PaymentAttestation is a write-once audit record. Each column holds a value
// sealed independently as "hex(iv):hex(ciphertext)".
type PaymentAttestation struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CardName   string    `gorm:"type:text;not null" json:"-"`
	CardNumber string    `gorm:"type:text;not null" json:"-"`
	CVV        string    `gorm:"column:cvv;type:text;not null" json:"-"`
	Expiry     string    `gorm:"type:text;not null" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
