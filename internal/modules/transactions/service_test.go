package transactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/events"
	"github.com/aristath/stockledger/internal/modules/positions"
	"github.com/aristath/stockledger/internal/modules/stocks"
	testingpkg "github.com/aristath/stockledger/internal/testing"
)

type fixture struct {
	db      *database.DB
	svc     *Service
	stocks  *stocks.Repository
	emitter *testingpkg.RecordingEmitter
}

func setup(t *testing.T) *fixture {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	emitter := &testingpkg.RecordingEmitter{}
	svc := NewService(db, emitter, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	testingpkg.SeedStock(t, db, "0700.HK", "Tencent", "HK", "HKD", "420.00")
	testingpkg.SeedStock(t, db, "600519", "Kweichow Moutai", "SH", "CNY", "0")

	return &fixture{db: db, svc: svc, stocks: stocks.NewRepository(db.Conn(), zerolog.Nop()), emitter: emitter}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func sp(s string) *string { return &s }

func (f *fixture) position(t *testing.T, code string) *stocks.Stock {
	stock, err := f.stocks.GetByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, stock)
	return stock
}

// recalculated rebuilds the position of code from its stored history
func (f *fixture) recalculated(t *testing.T, code string) positions.Position {
	txs, err := f.svc.repo.Find(context.Background(), Filter{StockCode: code})
	require.NoError(t, err)
	entries := make([]positions.Entry, len(txs))
	for i := range txs {
		entries[i] = txs[i].Entry()
	}
	return positions.Recalculate(entries)
}

func (f *fixture) assertConverged(t *testing.T, code string) {
	t.Helper()
	stored := f.position(t, code)
	recalc := f.recalculated(t, code)
	tolerance := d("0.000001")
	assert.True(t, stored.TotalShares().Sub(recalc.Shares()).Abs().LessThanOrEqual(tolerance),
		"shares: stored %s, recalculated %s", stored.TotalShares(), recalc.Shares())
	assert.True(t, stored.AvgCost().Sub(recalc.AvgCost()).Abs().LessThanOrEqual(tolerance),
		"avg: stored %s, recalculated %s", stored.AvgCost(), recalc.AvgCost())
}

func buy(code, date, price, shares, commission string) CreateInput {
	return CreateInput{StockCode: code, Type: "buy", Date: date, Price: d(price), Shares: d(shares), Commission: dp(commission)}
}

func sell(code, date, price, shares string) CreateInput {
	return CreateInput{StockCode: code, Type: "SELL", Date: date, Price: d(price), Shares: d(shares)}
}

func TestCreate_TencentScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	bought, err := f.svc.Create(ctx, buy("0700.hk", "2024-05-02", "400.50", "100", "10.00"))
	require.NoError(t, err)
	assert.Equal(t, "0700.HK", bought.StockCode)
	assert.Equal(t, domain.TransactionBuy, bought.Type)
	assert.True(t, bought.TotalAmount.Equal(d("40050")))

	stock := f.position(t, "0700.HK")
	assert.True(t, stock.TotalShares().Equal(d("100")))
	assert.Equal(t, "400.6000", stock.AvgCost().StringFixed(4))

	_, err = f.svc.Create(ctx, sell("0700.HK", "2024-05-20", "430", "50"))
	require.NoError(t, err)

	stock = f.position(t, "0700.HK")
	assert.True(t, stock.TotalShares().Equal(d("50")))
	assert.Equal(t, "400.6000", stock.AvgCost().StringFixed(4))

	assert.Equal(t, []events.EventType{
		events.TransactionCreated, events.PositionChanged,
		events.TransactionCreated, events.PositionChanged,
	}, f.emitter.Types())
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"zero price", buy("0700.HK", "2024-05-02", "0", "100", "0")},
		{"negative shares", buy("0700.HK", "2024-05-02", "10", "-1", "0")},
		{"negative commission", buy("0700.HK", "2024-05-02", "10", "1", "-1")},
		{"future date", buy("0700.HK", "2024-06-02", "10", "1", "0")},
		{"bad date", buy("0700.HK", "02/05/2024", "10", "1", "0")},
		{"bad type", CreateInput{StockCode: "0700.HK", Type: "HOLD", Date: "2024-05-02", Price: d("1"), Shares: d("1")}},
		{"notes too long", CreateInput{StockCode: "0700.HK", Type: "BUY", Date: "2024-05-02", Price: d("1"), Shares: d("1"), Notes: sp(string(make([]rune, 501)))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}

	assert.True(t, f.position(t, "0700.HK").TotalShares().IsZero())
}

func TestCreate_UnknownStock(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(context.Background(), buy("AAPL", "2024-05-02", "180", "10", "0"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreate_SellMoreThanHeld(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, buy("0700.HK", "2024-05-02", "400", "100", "0"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, sell("0700.HK", "2024-05-03", "410", "101"))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// Nothing was written
	_, page, err := f.svc.List(ctx, ListFilter{StockCode: "0700.HK"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.True(t, f.position(t, "0700.HK").TotalShares().Equal(d("100")))
}

func TestUpdate_EqualsDeleteThenCreate(t *testing.T) {
	ctx := context.Background()

	history := []CreateInput{
		buy("0700.HK", "2024-01-02", "300", "200", "15"),
		buy("0700.HK", "2024-02-02", "350", "100", "10"),
		sell("0700.HK", "2024-03-02", "380", "150"),
	}
	edit := UpdateInput{Price: dp("320"), Shares: dp("120"), Commission: dp("12")}
	replacement := buy("0700.HK", "2024-02-02", "320", "120", "12")

	viaUpdate := setup(t)
	var target int64
	for i, in := range history {
		tx, err := viaUpdate.svc.Create(ctx, in)
		require.NoError(t, err)
		if i == 1 {
			target = tx.ID
		}
	}
	updated, err := viaUpdate.svc.Update(ctx, target, edit)
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(d("38400")))

	viaRecreate := setup(t)
	for i, in := range history {
		tx, err := viaRecreate.svc.Create(ctx, in)
		require.NoError(t, err)
		if i == 1 {
			target = tx.ID
		}
	}
	require.NoError(t, viaRecreate.svc.Delete(ctx, target))
	_, err = viaRecreate.svc.Create(ctx, replacement)
	require.NoError(t, err)

	a := viaUpdate.position(t, "0700.HK")
	b := viaRecreate.position(t, "0700.HK")
	assert.True(t, a.TotalShares().Equal(b.TotalShares()), "%s != %s", a.TotalShares(), b.TotalShares())
	assert.True(t, a.AvgCost().Equal(b.AvgCost()), "%s != %s", a.AvgCost(), b.AvgCost())
	viaUpdate.assertConverged(t, "0700.HK")
}

func TestUpdate_RejectsOversell(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "0"))
	require.NoError(t, err)
	s, err := f.svc.Create(ctx, sell("0700.HK", "2024-01-03", "310", "40"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, s.ID, UpdateInput{Shares: dp("101")})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	got, err := f.svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Shares.Equal(d("40")))
	assert.True(t, f.position(t, "0700.HK").TotalShares().Equal(d("60")))
}

func TestUpdate_ShrinkingSoldBuyIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "0"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, sell("0700.HK", "2024-01-03", "310", "80"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, b.ID, UpdateInput{Shares: dp("50")})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.svc.Update(ctx, b.ID, UpdateInput{Shares: dp("90")})
	require.NoError(t, err)
	assert.True(t, f.position(t, "0700.HK").TotalShares().Equal(d("10")))
}

func TestUpdate_MovesBetweenStocks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "5"))
	require.NoError(t, err)

	moved, err := f.svc.Update(ctx, tx.ID, UpdateInput{StockCode: sp("600519"), Price: dp("1700")})
	require.NoError(t, err)
	assert.Equal(t, "600519", moved.StockCode)
	assert.True(t, moved.TotalAmount.Equal(d("170000")))

	assert.True(t, f.position(t, "0700.HK").TotalShares().IsZero())
	assert.True(t, f.position(t, "0700.HK").AvgCost().IsZero())
	moutai := f.position(t, "600519")
	assert.True(t, moutai.TotalShares().Equal(d("100")))
	assert.Equal(t, "1700.0500", moutai.AvgCost().StringFixed(4))
}

func TestUpdate_MoveBlockedWhenSharesSold(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "0"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, sell("0700.HK", "2024-01-03", "310", "30"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, b.ID, UpdateInput{StockCode: sp("600519")})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, f.position(t, "0700.HK").TotalShares().Equal(d("70")))
	assert.True(t, f.position(t, "600519").TotalShares().IsZero())
}

func TestUpdate_NotFound(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Update(context.Background(), 999, UpdateInput{Price: dp("1")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.True(t, errors.Is(f.svc.Delete(context.Background(), 999), domain.ErrNotFound))
}

func TestDelete_ReversesEffect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "0"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, buy("0700.HK", "2024-01-05", "400", "100", "0"))
	require.NoError(t, err)
	assert.Equal(t, "350.0000", f.position(t, "0700.HK").AvgCost().StringFixed(4))

	require.NoError(t, f.svc.Delete(ctx, first.ID))
	stock := f.position(t, "0700.HK")
	assert.True(t, stock.TotalShares().Equal(d("100")))
	assert.Equal(t, "400.0000", stock.AvgCost().StringFixed(4))

	_, err = f.svc.Get(ctx, first.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDelete_BuyAlreadySoldIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "0"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, sell("0700.HK", "2024-01-03", "310", "60"))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, b.ID)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, f.position(t, "0700.HK").TotalShares().Equal(d("40")))
}

func TestStockDeleteConflictScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stockSvc := stocks.NewService(f.db, f.emitter, zerolog.Nop())

	tx, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "400.50", "100", "10"))
	require.NoError(t, err)

	err = stockSvc.Delete(ctx, "0700.HK")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	require.NoError(t, f.svc.Delete(ctx, tx.ID))
	assert.NoError(t, stockSvc.Delete(ctx, "0700.HK"))
}

func TestConcurrentMutationsConverge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "100", "1000", "0"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, buy("0700.HK", "2024-02-01", fmt.Sprintf("%d", 100+i), "10", "1"))
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, sell("0700.HK", "2024-03-01", "120", "5"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stock := f.position(t, "0700.HK")
	assert.True(t, stock.TotalShares().Equal(d("1100")), "got %s", stock.TotalShares())
	f.assertConverged(t, "0700.HK")
}

func TestRandomSequencesConverge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Deterministic pseudo-random walk over creates, updates and deletes
	seed := uint32(7)
	next := func(n int) int {
		seed = seed*1664525 + 1013904223
		return int(seed>>8) % n
	}

	var ids []int64
	for step := 0; step < 150; step++ {
		switch op := next(10); {
		case op < 5 || len(ids) == 0:
			in := buy("0700.HK", "2024-01-02", fmt.Sprintf("%d.%02d", 300+next(200), next(100)), fmt.Sprintf("%d", 1+next(50)), fmt.Sprintf("%d", next(20)))
			if next(3) == 0 {
				in = sell("0700.HK", "2024-01-03", fmt.Sprintf("%d", 300+next(200)), fmt.Sprintf("%d", 1+next(50)))
			}
			tx, err := f.svc.Create(ctx, in)
			if err == nil {
				ids = append(ids, tx.ID)
			} else {
				require.True(t, errors.Is(err, domain.ErrValidation), "unexpected %v", err)
			}
		case op < 8:
			id := ids[next(len(ids))]
			_, err := f.svc.Update(ctx, id, UpdateInput{Shares: dp(fmt.Sprintf("%d", 1+next(60))), Price: dp(fmt.Sprintf("%d", 250+next(300)))})
			if err != nil {
				require.True(t, errors.Is(err, domain.ErrValidation), "unexpected %v", err)
			}
		default:
			i := next(len(ids))
			if err := f.svc.Delete(ctx, ids[i]); err == nil {
				ids = append(ids[:i], ids[i+1:]...)
			} else {
				require.True(t, errors.Is(err, domain.ErrValidation), "unexpected %v", err)
			}
		}

		f.assertConverged(t, "0700.HK")
		assert.False(t, f.position(t, "0700.HK").TotalShares().IsNegative())
	}
}

func TestListAndStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, buy("0700.HK", "2024-01-02", "300", "100", "10"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, sell("0700.HK", "2024-03-02", "350", "40"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, buy("600519", "2024-02-02", "1700", "10", "5"))
	require.NoError(t, err)

	txs, page, err := f.svc.List(ctx, ListFilter{PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, txs, 2)
	assert.Equal(t, "2024-03-02", txs[0].Date)

	sells, _, err := f.svc.List(ctx, ListFilter{Type: "sell"})
	require.NoError(t, err)
	require.Len(t, sells, 1)

	ranged, _, err := f.svc.List(ctx, ListFilter{StartDate: "2024-01-15", EndDate: "2024-02-28"})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "600519", ranged[0].StockCode)

	_, _, err = f.svc.List(ctx, ListFilter{StartDate: "yesterday"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	stats, err := f.svc.Stats(ctx, ListFilter{StockCode: "0700.hk"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTransactions)
	assert.True(t, stats.TotalBuyAmount.Equal(d("30000")))
	assert.True(t, stats.TotalSellAmount.Equal(d("14000")))
	assert.True(t, stats.NetShares.Equal(d("60")))
	assert.True(t, stats.NetAmount.Equal(d("-16010")))
}
