package ledger

import (
	"github.com/solacehq/solace/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ledger service. Every
// mutation is a single conditional statement against the row; the service
// never reads counters and writes them back.
type Repository interface {
	GetEntry(accountID uint) (*models.TokenLedger, error)
	CreateIfAbsent(accountID uint) error
	AddGrant(accountID uint, grantUnits int64) error
	ApplyDebit(accountID uint, delta int64) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetEntry(accountID uint) (*models.TokenLedger, error) {
	var entry models.TokenLedger
	err := r.db.Where("account_id = ?", accountID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormRepository) CreateIfAbsent(accountID uint) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(&models.TokenLedger{AccountID: accountID}).Error
}

func (r *gormRepository) AddGrant(accountID uint, grantUnits int64) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_granted": gorm.Expr("total_granted + ?", grantUnits),
		}),
	}).Create(&models.TokenLedger{
		AccountID:    accountID,
		TotalGranted: grantUnits,
	}).Error
}

func (r *gormRepository) ApplyDebit(accountID uint, delta int64) (bool, error) {
	// Single conditional UPDATE so concurrent debits against the same
	// account cannot overshoot the grant.
	tx := r.db.Model(&models.TokenLedger{}).
		Where("account_id = ? AND total_used + ? <= total_granted", accountID, delta).
		UpdateColumn("total_used", gorm.Expr("total_used + ?", delta))
	if tx.Error != nil {
		return false, tx.Error
	}
	// A missing row matches nothing and behaves like an empty ledger, so
	// the debit is rejected the same way as an over-budget one.
	return tx.RowsAffected > 0, nil
}
