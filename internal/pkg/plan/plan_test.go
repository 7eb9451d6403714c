package plan

import (
	"testing"

	"github.com/solacehq/solace/app/models"
)

func TestResolveAnonymous(t *testing.T) {
	if got := Resolve(nil); got != TierUnmeteredLimited {
		t.Fatalf("Resolve(nil) = %q, want %q", got, TierUnmeteredLimited)
	}
	if got := Resolve(&models.User{}); got != TierUnmeteredLimited {
		t.Fatalf("Resolve(zero account) = %q, want %q", got, TierUnmeteredLimited)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		plan   string
		status string
		want   Tier
	}{
		{name: "active member", plan: "member", status: "active", want: TierMetered},
		{name: "uppercase plan", plan: "MEMBER", status: "active", want: TierMetered},
		{name: "free plan", plan: "free", status: "active", want: TierUnmeteredLimited},
		{name: "unknown plan", plan: "gold", status: "active", want: TierUnmeteredLimited},
		{name: "disabled member", plan: "member", status: "disabled", want: TierUnmeteredLimited},
		{name: "inactive member", plan: "member", status: "inactive", want: TierUnmeteredLimited},
	}

	for _, tt := range tests {
		account := &models.User{ID: 1, Plan: tt.plan, Status: tt.status}
		if got := Resolve(account); got != tt.want {
			t.Fatalf("%s: Resolve = %q, want %q", tt.name, got, tt.want)
		}
	}
}
