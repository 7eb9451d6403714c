package plan

import (
	"strings"

	"github.com/solacehq/solace/app/models"
)

// Tier is an account's current service class.
type Tier string

const (
	// TierMetered routes to the primary provider and debits the ledger.
	TierMetered Tier = "metered"
	// TierUnmeteredLimited routes to the fallback provider with no ledger
	// interaction at all.
	TierUnmeteredLimited Tier = "unmetered_limited"
)

// Resolve maps an account record to its service tier. Pure; reads only the
// already-loaded record. Anonymous visitors (nil account), deactivated
// accounts and accounts on the free plan stay on the unmetered tier.
func Resolve(account *models.User) Tier {
	if account == nil || account.ID == 0 {
		return TierUnmeteredLimited
	}
	if normalizeStatus(account.Status) != models.STATUS_ACTIVE {
		return TierUnmeteredLimited
	}
	switch normalizePlan(account.Plan) {
	case models.PLAN_MEMBER:
		return TierMetered
	default:
		return TierUnmeteredLimited
	}
}

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case models.PLAN_MEMBER:
		return models.PLAN_MEMBER
	default:
		return models.PLAN_FREE
	}
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
