package ledger

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/dbtest"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/metrics"
)

func TestLedgerBalanceNeverNegative(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	customer := dbtest.Customer(t, conn, 500)
	svc, err := NewService(NewRepository(conn), nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	expected := int64(500)

	for i := 0; i < 200; i++ {
		amount := 1 + rng.Int63n(400)
		debit := rng.Intn(2) == 0
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			if debit {
				_, err := svc.ReserveAndDebit(ctx, tx, Entry{CustomerID: customer.ID, AmountCents: amount})
				return err
			}
			_, err := svc.Credit(ctx, tx, Entry{CustomerID: customer.ID, AmountCents: amount})
			return err
		})
		switch {
		case debit && amount > expected:
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredit), "iteration %d: %v", i, err)
		case debit:
			require.NoError(t, err)
			expected -= amount
		default:
			require.NoError(t, err)
			expected += amount
		}

		balance, err := svc.GetBalance(ctx, customer.ID)
		require.NoError(t, err)
		require.Equal(t, expected, balance)
		require.GreaterOrEqual(t, balance, int64(0))
	}
}

func TestConcurrentDebitsCannotOverdraw(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	customer := dbtest.Customer(t, conn, 1000)
	svc, err := NewService(NewRepository(conn), nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.WithTx(ctx, func(tx *gorm.DB) error {
				_, err := svc.ReserveAndDebit(ctx, tx, Entry{CustomerID: customer.ID, AmountCents: 400})
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, succeeded)
	require.EqualValues(t, 200, dbtest.Credit(t, conn, customer.ID))
	require.EqualValues(t, 2, dbtest.Count(t, conn, &models.CreditLedgerEvent{}))
}

func TestHistoryTracksBalanceAfterEachEntry(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	customer := dbtest.Customer(t, conn, 0)
	svc, err := NewService(NewRepository(conn), nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for _, amount := range []int64{100, 200} {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := svc.Credit(ctx, tx, Entry{CustomerID: customer.ID, AmountCents: amount})
			return err
		}))
	}

	events, err := svc.History(ctx, customer.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.ElementsMatch(t, []int64{100, 300}, []int64{events[0].BalanceAfterCents, events[1].BalanceAfterCents})
}

func TestCreditMetricsWaitForCommit(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	customer := dbtest.Customer(t, conn, 500)
	reg := prometheus.NewRegistry()
	svc, err := NewService(NewRepository(conn), nil, metrics.NewDomain(reg))
	require.NoError(t, err)
	ctx := context.Background()

	debitCents := func() float64 {
		return counterValue(t, reg, "casa_credit_movement_cents_total", string(enums.CreditEventOrderDebit))
	}

	var moved Movement
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		moved, err = svc.ReserveAndDebit(ctx, tx, Entry{CustomerID: customer.ID, AmountCents: 300})
		require.NoError(t, err)
		return errors.New("outbox insert failed")
	})
	require.Error(t, err)
	require.EqualValues(t, 500, dbtest.Credit(t, conn, customer.ID))
	require.Zero(t, debitCents(), "a rolled back debit must not be counted")

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err = svc.ReserveAndDebit(ctx, tx, Entry{CustomerID: customer.ID, AmountCents: 300})
		return err
	}))
	require.Zero(t, debitCents())
	svc.Committed(ctx, moved)
	require.EqualValues(t, 300, debitCents())
	require.EqualValues(t, 200, moved.BalanceAfterCents)

	svc.Committed(ctx, Movement{})
	require.EqualValues(t, 300, debitCents(), "zero movement is a no-op")
}

// counterValue reads one labelled series from reg; a missing series is zero.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
