package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"beanstalker/models"
	"beanstalker/notifications"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	transferTTL         = 24 * time.Hour
	codeGenerationTries = 20
)

// TransferService issues and redeems SMS credit-transfer codes. Funds
// stay with the sender until redemption; expiry only narrows a status.
type TransferService struct {
	db       *gorm.DB
	ledger   *LedgerService
	notifier notifications.Sender
}

func NewTransferService(db *gorm.DB, ledger *LedgerService, notifier notifications.Sender) *TransferService {
	return &TransferService{db: db, ledger: ledger, notifier: notifier}
}

type TransferReceipt struct {
	Code       string          `json:"code"`
	SMSMessage string          `json:"sms_message"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Amount     decimal.Decimal `json:"amount"`
}

// CreateTransfer validates the sender can cover the amount and issues a
// pending transfer. The balance is checked, not debited: the recipient
// may never show up, and the sender keeps spending power until they do.
func (s *TransferService) CreateTransfer(ctx context.Context, senderID uint, recipientPhone string, amount decimal.Decimal) (*TransferReceipt, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	balance, err := s.ledger.Balance(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	transfer, err := s.insertWithFreshCode(ctx, senderID, recipientPhone, amount)
	if err != nil {
		return nil, err
	}

	return &TransferReceipt{
		Code:       transfer.Code,
		SMSMessage: fmt.Sprintf("You've been sent %s in Bean Stalker credit! Show code %s at the counter to claim it. Expires in 24 hours.", amount.StringFixed(2), transfer.Code),
		ExpiresAt:  transfer.ExpiresAt,
		Amount:     amount,
	}, nil
}

// insertWithFreshCode draws 6-digit codes until one lands. A partial
// unique index (code among pending transfers) arbitrates concurrent
// draws; a duplicate-key failure just means redrawing. Collisions are
// rare with a six-digit space; the bounded retry keeps the loop finite
// anyway.
func (s *TransferService) insertWithFreshCode(ctx context.Context, senderID uint, recipientPhone string, amount decimal.Decimal) (*models.PendingCreditTransfer, error) {
	for i := 0; i < codeGenerationTries; i++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}
		transfer := &models.PendingCreditTransfer{
			Code:           code,
			SenderID:       senderID,
			RecipientPhone: recipientPhone,
			Amount:         amount,
			Status:         models.TransferStatusPending,
			ExpiresAt:      time.Now().Add(transferTTL),
		}
		err = s.db.WithContext(ctx).Create(transfer).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create transfer: %w", err)
		}
		return transfer, nil
	}
	return nil, fmt.Errorf("could not generate a unique transfer code")
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type RedemptionSummary struct {
	SenderUsername string          `json:"sender_username"`
	RecipientPhone string          `json:"recipient_phone"`
	Amount         decimal.Decimal `json:"amount"`
}

// Redeem settles a pending transfer: the sender is debited and the
// transfer marked verified, atomically. The sender's live balance is
// re-checked inside the same transaction as the debit, since it may have
// dropped since the transfer was created.
func (s *TransferService) Redeem(ctx context.Context, code string, staffID uint) (*RedemptionSummary, error) {
	var summary *RedemptionSummary
	var senderID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transfer models.PendingCreditTransfer
		err := lockForUpdate(tx).
			Where("code = ?", code).
			Order("created_at DESC").
			First(&transfer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransferNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup transfer: %w", err)
		}

		switch transfer.Status {
		case models.TransferStatusVerified:
			return ErrTransferAlreadyUsed
		case models.TransferStatusExpired:
			return ErrTransferExpired
		}

		now := time.Now()
		if transfer.Expired(now) {
			// never swept, but past expiry all the same
			return ErrTransferExpired
		}

		var sender models.User
		if err := tx.First(&sender, transfer.SenderID).Error; err != nil {
			return fmt.Errorf("load sender %d: %w", transfer.SenderID, err)
		}

		if _, err := s.ledger.DebitInTx(tx, transfer.SenderID, transfer.Amount,
			fmt.Sprintf("Credit transfer to %s (code %s)", transfer.RecipientPhone, transfer.Code),
			Correlation{CounterpartyID: &staffID}); err != nil {
			return err
		}

		transfer.Status = models.TransferStatusVerified
		transfer.VerifiedAt = &now
		transfer.VerifierID = &staffID
		if err := tx.Save(&transfer).Error; err != nil {
			return fmt.Errorf("mark transfer verified: %w", err)
		}

		senderID = sender.ID
		summary = &RedemptionSummary{
			SenderUsername: sender.Username,
			RecipientPhone: transfer.RecipientPhone,
			Amount:         transfer.Amount,
		}
		return nil
	})
	if errors.Is(err, ErrTransferExpired) {
		// flip the status outside the rolled-back transaction so the
		// sweep does not have to rediscover it
		s.markExpired(ctx, code)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.notifySender(ctx, senderID, summary)
	return summary, nil
}

func (s *TransferService) markExpired(ctx context.Context, code string) {
	err := s.db.WithContext(ctx).Model(&models.PendingCreditTransfer{}).
		Where("code = ? AND status = ?", code, models.TransferStatusPending).
		Update("status", models.TransferStatusExpired).Error
	if err != nil {
		log.Printf("transfer: mark code %s expired failed: %v", code, err)
	}
}

func (s *TransferService) notifySender(ctx context.Context, senderID uint, summary *RedemptionSummary) {
	err := s.notifier.Send(ctx, senderID, notifications.Notification{
		Title: "Credit transfer claimed",
		Body:  fmt.Sprintf("Your gift of %s credits to %s was claimed at the counter.", summary.Amount.StringFixed(2), summary.RecipientPhone),
		Data:  map[string]any{"type": "transfer_redeemed"},
	})
	if err != nil {
		log.Printf("transfer: notify sender %d failed: %v", senderID, err)
	}
}

// ExpireStale flips past-expiry pending transfers to expired. Safe to run
// from a ticker and on demand; it never touches the ledger.
func (s *TransferService) ExpireStale(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.PendingCreditTransfer{}).
		Where("status = ? AND expires_at < ?", models.TransferStatusPending, time.Now()).
		Update("status", models.TransferStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire transfers: %w", res.Error)
	}
	return res.RowsAffected, nil
}
