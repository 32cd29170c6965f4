package services

import (
	"context"
	"errors"
	"fmt"

	"beanstalker/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Correlation carries the optional metadata a ledger entry is tied to.
type Correlation struct {
	OrderID        *uint
	CounterpartyID *uint
	ExternalTxID   *string
}

// LedgerService is the only writer of user balances. Every mutation
// row-locks the user, recomputes the balance from the locked row and
// appends an immutable CreditTransaction in the same database
// transaction.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

func (l *LedgerService) Debit(ctx context.Context, userID uint, amount decimal.Decimal, description string, corr Correlation) (*models.CreditTransaction, error) {
	var txn *models.CreditTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = l.DebitInTx(tx, userID, amount, description, corr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitInTx applies a debit inside an already open transaction, so
// callers can make the debit atomic with their own writes (order insert,
// transfer verification).
func (l *LedgerService) DebitInTx(tx *gorm.DB, userID uint, amount decimal.Decimal, description string, corr Correlation) (*models.CreditTransaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(tx, userID, amount.Neg(), description, corr)
}

func (l *LedgerService) Credit(ctx context.Context, userID uint, amount decimal.Decimal, description string, corr Correlation) (*models.CreditTransaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	var txn *models.CreditTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = l.apply(tx, userID, amount, description, corr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// apply is the single read-modify-write path. amount is signed; a
// negative amount that would take the balance below zero is rejected
// before anything is written.
func (l *LedgerService) apply(tx *gorm.DB, userID uint, amount decimal.Decimal, description string, corr Correlation) (*models.CreditTransaction, error) {
	var user models.User
	if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}

	newBalance := user.Credits.Add(amount)
	if newBalance.Sign() < 0 {
		return nil, ErrInsufficientBalance
	}

	if err := tx.Model(&user).Update("credits", newBalance).Error; err != nil {
		return nil, fmt.Errorf("update balance for user %d: %w", userID, err)
	}

	txn := &models.CreditTransaction{
		UserID:         userID,
		Amount:         amount,
		BalanceAfter:   newBalance,
		Description:    description,
		ExternalTxID:   corr.ExternalTxID,
		OrderID:        corr.OrderID,
		CounterpartyID: corr.CounterpartyID,
		RefID:          uuid.New().String(),
	}
	if err := tx.Create(txn).Error; err != nil {
		if corr.ExternalTxID != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent replay of the same receipt won the insert
			return nil, ErrReceiptAlreadyProcessed
		}
		return nil, fmt.Errorf("append transaction for user %d: %w", userID, err)
	}
	return txn, nil
}

// TransactionsFor returns the account's ledger history, newest first.
func (l *LedgerService) TransactionsFor(ctx context.Context, userID uint) ([]models.CreditTransaction, error) {
	var txns []models.CreditTransaction
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("load transactions for user %d: %w", userID, err)
	}
	return txns, nil
}

// FindByExternalID looks up a ledger entry by its purchase-receipt id.
func (l *LedgerService) FindByExternalID(ctx context.Context, externalTxID string) (*models.CreditTransaction, error) {
	var txn models.CreditTransaction
	err := l.db.WithContext(ctx).
		Where("external_tx_id = ?", externalTxID).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup external tx %s: %w", externalTxID, err)
	}
	return &txn, nil
}

// Purchase credits an account from a store purchase receipt. A receipt
// whose external transaction id was already recorded is rejected, not
// re-applied.
func (l *LedgerService) Purchase(ctx context.Context, userID uint, amount decimal.Decimal, externalTxID string) (*models.CreditTransaction, error) {
	if externalTxID == "" {
		externalTxID = "manual-" + uuid.New().String()
	}

	existing, err := l.FindByExternalID(ctx, externalTxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReceiptAlreadyProcessed
	}

	return l.Credit(ctx, userID, amount, fmt.Sprintf("Credit purchase (receipt %s)", externalTxID), Correlation{
		ExternalTxID: &externalTxID,
	})
}

// Balance reads the current projection for an account.
func (l *LedgerService) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user.Credits, nil
}
