package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// UpstreamUnitsPerBillingUnit is the conversion divisor between
// vendor-reported usage units and the billing units tracked per account.
const UpstreamUnitsPerBillingUnit = 2000

// ErrQuotaExceeded is returned when a debit would push an account past its
// granted total. It is resolved only by a new grant.
var ErrQuotaExceeded = errors.New("token quota exceeded")

// Balance is the externally visible state of an account ledger.
type Balance struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
}

// BillingUnits converts vendor usage units into billing units, rounding up.
func BillingUnits(upstreamUnits int64) int64 {
	if upstreamUnits <= 0 {
		return 0
	}
	return (upstreamUnits + UpstreamUnitsPerBillingUnit - 1) / UpstreamUnitsPerBillingUnit
}

// Service applies credits and debits to account ledgers.
type Service struct {
	repo Repository
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Get returns the account balance. Accounts without a ledger row read as
// zero rather than an error.
func (s *Service) Get(ctx context.Context, accountID uint) (Balance, error) {
	_ = ctx
	entry, err := s.repo.GetEntry(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Balance{}, nil
		}
		return Balance{}, fmt.Errorf("ledger lookup failed: %w", err)
	}
	return Balance{Total: entry.TotalGranted, Used: entry.TotalUsed}, nil
}

// CanDebit reports whether a debit of the given upstream usage would fit the
// remaining budget. It is advisory; Debit remains the authoritative check.
func (s *Service) CanDebit(ctx context.Context, accountID uint, upstreamUnits int64) (bool, error) {
	delta := BillingUnits(upstreamUnits)
	if delta == 0 {
		return true, nil
	}
	balance, err := s.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return balance.Used+delta <= balance.Total, nil
}

// Debit converts upstream usage to billing units and applies it as a single
// conditional update. Returns ErrQuotaExceeded without writing anything when
// the debit does not fit.
func (s *Service) Debit(ctx context.Context, accountID uint, upstreamUnits int64) error {
	_ = ctx
	delta := BillingUnits(upstreamUnits)
	if delta == 0 {
		return nil
	}
	applied, err := s.repo.ApplyDebit(accountID, delta)
	if err != nil {
		return fmt.Errorf("ledger debit failed: %w", err)
	}
	if !applied {
		return ErrQuotaExceeded
	}
	return nil
}

// Credit adds grant units to the account total, creating the ledger row with
// zero usage if it does not exist yet.
func (s *Service) Credit(ctx context.Context, accountID uint, grantUnits int64) error {
	_ = ctx
	if grantUnits <= 0 {
		return errors.New("grant units must be positive")
	}
	if err := s.repo.AddGrant(accountID, grantUnits); err != nil {
		return fmt.Errorf("ledger credit failed: %w", err)
	}
	return nil
}

// Provision ensures a zero ledger row exists for the account. Called at
// registration so debits never depend on a first grant having happened.
func (s *Service) Provision(ctx context.Context, accountID uint) error {
	_ = ctx
	if err := s.repo.CreateIfAbsent(accountID); err != nil {
		return fmt.Errorf("ledger provisioning failed: %w", err)
	}
	return nil
}
