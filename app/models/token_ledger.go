package models

import "time"

// TokenLedger tracks per-account billing-unit counters. TotalUsed may never
// exceed TotalGranted and both columns only ever grow; all mutations go
// through the ledger package which enforces this with conditional updates.
type TokenLedger struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    uint      `gorm:"not null;uniqueIndex:ux_token_ledgers_account" json:"account_id"`
	TotalGranted int64     `gorm:"not null;default:0" json:"total_granted"`
	TotalUsed    int64     `gorm:"not null;default:0" json:"total_used"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
