package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/solacehq/solace/app/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TokenLedger{}))

	// Serialize connections so concurrent test goroutines exercise the
	// conditional update instead of sqlite lock errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return NewServiceFromDB(db)
}

func TestBillingUnits(t *testing.T) {
	tests := []struct {
		upstream int64
		want     int64
	}{
		{upstream: 0, want: 0},
		{upstream: -5, want: 0},
		{upstream: 1, want: 1},
		{upstream: 1999, want: 1},
		{upstream: 2000, want: 1},
		{upstream: 2001, want: 2},
		{upstream: 4001, want: 3},
	}

	for _, tt := range tests {
		if got := BillingUnits(tt.upstream); got != tt.want {
			t.Fatalf("BillingUnits(%d) = %d, want %d", tt.upstream, got, tt.want)
		}
	}
}

func TestGetWithoutEntry(t *testing.T) {
	svc := newTestService(t)

	balance, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, Balance{}, balance)
}

func TestProvisionCreatesZeroRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Provision(ctx, 7))
	require.NoError(t, svc.Provision(ctx, 7)) // idempotent

	balance, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 0, Used: 0}, balance)
}

func TestCreditUpserts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, 5))
	require.NoError(t, svc.Credit(ctx, 1, 3))

	balance, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 8, Used: 0}, balance)
}

func TestCreditRejectsNonPositiveGrant(t *testing.T) {
	svc := newTestService(t)

	require.Error(t, svc.Credit(context.Background(), 1, 0))
	require.Error(t, svc.Credit(context.Background(), 1, -10))
}

func TestDebitConversion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, 5))
	require.NoError(t, svc.Debit(ctx, 1, 4001)) // ceil(4001/2000) = 3

	balance, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 5, Used: 3}, balance)
}

func TestDebitAtBoundary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, 10))
	require.NoError(t, svc.Debit(ctx, 1, 10*UpstreamUnitsPerBillingUnit))

	err := svc.Debit(ctx, 1, 1)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	balance, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 10, Used: 10}, balance)
}

func TestDebitWithoutEntry(t *testing.T) {
	svc := newTestService(t)

	err := svc.Debit(context.Background(), 99, 1)
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCanDebit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, 2))

	ok, err := svc.CanDebit(ctx, 1, 2500) // 2 units, fits exactly
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanDebit(ctx, 1, 4001) // 3 units, over budget
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanDebit(ctx, 1, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentDebitsSingleWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Budget for exactly one debit.
	require.NoError(t, svc.Credit(ctx, 1, 1))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Debit(ctx, 1, UpstreamUnitsPerBillingUnit)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, ErrQuotaExceeded)
	}
	assert.Equal(t, 1, successes)

	balance, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 1, Used: 1}, balance)
}

func TestInvariantUnderRandomInterleavings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		accountID := uint(rng.Intn(3) + 1)
		if rng.Intn(2) == 0 {
			require.NoError(t, svc.Credit(ctx, accountID, int64(rng.Intn(5)+1)))
		} else {
			err := svc.Debit(ctx, accountID, int64(rng.Intn(3*UpstreamUnitsPerBillingUnit)))
			if err != nil && !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("unexpected debit error: %v", err)
			}
		}

		balance, err := svc.Get(ctx, accountID)
		require.NoError(t, err)
		if balance.Used < 0 || balance.Used > balance.Total {
			t.Fatalf("invariant violated after op %d: used=%d total=%d", i, balance.Used, balance.Total)
		}
	}
}
