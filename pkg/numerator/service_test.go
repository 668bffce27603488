package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
	lastIncr     int64 // Track last increment passed
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	// args[1] carries the increment for range reservations, 1 for strict.
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.lastIncr = increment

	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(Static(q))
	ctx := context.Background()
	cfg := DefaultConfig("INV")
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00001" {
		t.Errorf("expected INV-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00002" {
		t.Errorf("expected INV-2026-00002, got %s", num)
	}

	if q.lastIncr != 1 {
		t.Errorf("strict strategy must increment by 1, got %d", q.lastIncr)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(Static(q))
	ctx := context.Background()
	cfg := DefaultConfig("BO")
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	// First call reserves a range of 10, subsequent calls come from memory.
	for i := int64(1); i <= 12; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, period)
		if err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
		want := fmt.Sprintf("BO-2026-%05d", i)
		if num != want {
			t.Errorf("expected %s, got %s", want, num)
		}
	}

	if q.lastIncr != 10 {
		t.Errorf("cached strategy must reserve in ranges of 10, got %d", q.lastIncr)
	}
}

func TestFormatNumber_NoYear(t *testing.T) {
	svc := New(Static(&mockQuerier{}))
	cfg := Config{Prefix: "PAY", IncludeYear: false, PadWidth: 6, ResetPeriod: "never"}

	got := svc.formatNumber(cfg, time.Now(), 42)
	if got != "PAY-000042" {
		t.Errorf("expected PAY-000042, got %s", got)
	}
}

func TestParseNumber(t *testing.T) {
	cases := map[string]int64{
		"INV-2026-00042": 42,
		"PAY-000007":     7,
		"JNL-2026-1":     1,
		"garbage":        -1,
		"INV-":           -1,
		"INV-2026-xx":    -1,
		"":               -1,
	}
	for in, want := range cases {
		if got := ParseNumber(in); got != want {
			t.Errorf("ParseNumber(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestGetNextNumber_ResolvesQuerierPerCall(t *testing.T) {
	type txKey struct{}

	pool := &mockQuerier{}
	txQuerier := &mockQuerier{currentValue: 500}

	svc := New(func(ctx context.Context) Querier {
		if q, ok := ctx.Value(txKey{}).(Querier); ok {
			return q
		}
		return pool
	})
	cfg := DefaultConfig("INV")
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(context.Background(), cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00001" {
		t.Errorf("pool querier expected INV-2026-00001, got %s", num)
	}

	txCtx := context.WithValue(context.Background(), txKey{}, Querier(txQuerier))
	num, err = svc.GetNextNumber(txCtx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00501" {
		t.Errorf("transaction querier expected INV-2026-00501, got %s", num)
	}
	if pool.currentValue != 1 {
		t.Errorf("pool counter touched by transactional call: %d", pool.currentValue)
	}
}
