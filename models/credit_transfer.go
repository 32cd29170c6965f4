package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TransferStatusPending  = "pending"
	TransferStatusVerified = "verified"
	TransferStatusExpired  = "expired"
)

// PendingCreditTransfer is an SMS-redeemable gift of credit to a phone
// number that may not belong to a registered account. Funds stay with the
// sender until a staff member redeems the code; expiry never touches the
// ledger.
type PendingCreditTransfer struct {
	gorm.Model

	Code           string          `gorm:"size:6;uniqueIndex:idx_transfer_code_pending,where:status = 'pending'" json:"code"`
	SenderID       uint            `gorm:"index" json:"sender_id"`
	RecipientPhone string          `gorm:"size:32" json:"recipient_phone"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Status         string          `gorm:"size:16;index;default:pending" json:"status"`
	ExpiresAt      time.Time       `json:"expires_at"`

	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifierID *uint      `json:"verifier_id,omitempty"`
}

// Expired reports whether the transfer is past its expiry, whether or not
// the sweep has flipped its status yet.
func (t *PendingCreditTransfer) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
