package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Username    string          `gorm:"uniqueIndex;size:64" json:"username"`
	PhoneNumber string          `gorm:"index;size:32" json:"phone_number"`
	APIKey      string          `gorm:"uniqueIndex;size:64" json:"-"`
	Credits     decimal.Decimal `gorm:"type:numeric(12,2)" json:"credits"`
	IsAdmin     bool            `gorm:"default:false" json:"is_admin"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`

	Transactions []CreditTransaction `gorm:"foreignKey:UserID" json:"-"`
}

// CreditTransaction is an immutable ledger entry. Amount is signed
// (negative = debit) and BalanceAfter is the snapshot written at commit
// time, never recomputed later.
type CreditTransaction struct {
	gorm.Model

	UserID       uint            `gorm:"index"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(12,2)" json:"balance_after"`
	Description  string          `gorm:"size:255" json:"description"`

	// ExternalTxID dedupes purchase/IAP receipts; unique while present.
	ExternalTxID *string `gorm:"uniqueIndex;size:128" json:"external_tx_id,omitempty"`

	OrderID        *uint  `gorm:"index" json:"order_id,omitempty"`
	CounterpartyID *uint  `gorm:"index" json:"counterparty_id,omitempty"`
	RefID          string `gorm:"size:64" json:"ref_id"`
}
