package stockitem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/internal/domain/valuation"
)

type fakeTxManager struct{}

func (f *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	items map[id.ID]*StockItem
	lots  []*StockLot
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[id.ID]*StockItem)}
}

func (m *memRepo) Create(_ context.Context, item *StockItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) GetByID(_ context.Context, itemID id.ID) (*StockItem, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("stock_item", itemID.String())
	}
	copied := *item
	return &copied, nil
}

func (m *memRepo) GetByCode(_ context.Context, code string) (*StockItem, error) {
	for _, item := range m.items {
		if item.Code == code {
			copied := *item
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("stock_item", code)
}

func (m *memRepo) Update(_ context.Context, item *StockItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*StockItem, error) {
	return m.GetByID(ctx, itemID)
}

func (m *memRepo) List(_ context.Context, _, _ int) ([]*StockItem, error) {
	return m.ListAll(context.Background())
}

func (m *memRepo) ListAll(_ context.Context) ([]*StockItem, error) {
	out := make([]*StockItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *memRepo) CreateLot(_ context.Context, lot *StockLot) error {
	m.lots = append(m.lots, lot)
	return nil
}

func (m *memRepo) GetOpenLots(_ context.Context, itemID id.ID) ([]StockLot, error) {
	var open []StockLot
	for _, lot := range m.lots {
		if lot.StockItemID == itemID && lot.Remaining.IsPositive() {
			open = append(open, *lot)
		}
	}
	return open, nil
}

func (m *memRepo) UpdateLotRemaining(_ context.Context, lotID id.ID, remaining types.Money) error {
	for _, lot := range m.lots {
		if lot.ID == lotID {
			lot.Remaining = remaining
		}
	}
	return nil
}

func setup() (*Service, *memRepo, *StockItem) {
	repo := newMemRepo()
	item := NewStockItem("WIDGET", "Standard widget")
	repo.items[item.ID] = item

	svc := NewService(repo, valuation.NewEngine(), &fakeTxManager{})
	return svc, repo, item
}

func TestReceive_CreatesLotAndReaverages(t *testing.T) {
	svc, repo, item := setup()
	ctx := context.Background()

	// Opening position: 10 on hand at average 8.00.
	item.QuantityOnHand = types.MustMoney("10")
	item.StockValue = types.MustMoney("80.00")
	item.AverageCost = types.MustMoney("8.0000")

	updated, err := svc.Receive(ctx, ReceiptRequest{
		StockItemID: item.ID,
		Quantity:    types.MustMoney("30"),
		UnitCost:    types.MustMoney("10.00"),
		Reference:   "GRN-001",
	})
	require.NoError(t, err)

	assert.True(t, updated.QuantityOnHand.Equal(types.MustMoney("40")))
	assert.True(t, updated.StockValue.Equal(types.MustMoney("380.00")), "got %s", updated.StockValue)
	// (80 + 300) / 40 = 9.50
	assert.True(t, updated.AverageCost.Equal(types.MustMoney("9.5000")), "got %s", updated.AverageCost)
	assert.True(t, updated.LastCost.Equal(types.MustMoney("10.00")))

	require.Len(t, repo.lots, 1)
	lot := repo.lots[0]
	assert.Equal(t, item.ID, lot.StockItemID)
	assert.True(t, lot.Remaining.Equal(types.MustMoney("30")))
	assert.Equal(t, "GRN-001", lot.Reference)
}

func TestReceive_RejectsNonPositiveQuantity(t *testing.T) {
	svc, repo, item := setup()

	_, err := svc.Receive(context.Background(), ReceiptRequest{
		StockItemID: item.ID,
		Quantity:    types.Zero(),
		UnitCost:    types.MustMoney("5.00"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Empty(t, repo.lots)
}

func TestReceive_UnknownItem(t *testing.T) {
	svc, _, _ := setup()

	_, err := svc.Receive(context.Background(), ReceiptRequest{
		StockItemID: id.New(),
		Quantity:    types.MustMoney("5"),
		UnitCost:    types.MustMoney("5.00"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
