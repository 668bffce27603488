package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/infrastructure/storage/postgres"
)

const (
	stockItemsTable = "cat_stock_items"
	stockLotsTable  = "cat_stock_lots"
)

var _ stockitem.Repository = (*StockItemRepo)(nil)

// StockItemRepo implements stockitem.Repository, including the lot
// history used by FIFO/LIFO costing.
type StockItemRepo struct {
	*BaseCatalogRepo[*stockitem.StockItem]
}

// NewStockItemRepo creates a new stock item repository.
func NewStockItemRepo(txManager *postgres.TxManager) *StockItemRepo {
	return &StockItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			stockItemsTable,
			postgres.ExtractDBColumns[stockitem.StockItem](),
			func() *stockitem.StockItem { return &stockitem.StockItem{} },
		),
	}
}

// ListAll retrieves every stock item, for valuation reporting.
func (r *StockItemRepo) ListAll(ctx context.Context) ([]*stockitem.StockItem, error) {
	return r.List(ctx, 0, 0)
}

func (r *StockItemRepo) CreateLot(ctx context.Context, lot *stockitem.StockLot) error {
	q := r.Builder().
		Insert(stockLotsTable).
		SetMap(postgres.StructToMap(lot))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lot: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetOpenLots returns lots with remaining quantity, oldest receipt first.
// The valuation engine reverses the order itself for LIFO.
func (r *StockItemRepo) GetOpenLots(ctx context.Context, itemID id.ID) ([]stockitem.StockLot, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[stockitem.StockLot]()...).
		From(stockLotsTable).
		Where(squirrel.Eq{"stock_item_id": itemID}).
		Where(squirrel.Gt{"remaining": 0}).
		OrderBy("received_date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []stockitem.StockLot
	if err := pgxscan.Select(ctx, r.querier(ctx), &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("get open lots: %w", err)
	}
	return lots, nil
}

func (r *StockItemRepo) UpdateLotRemaining(ctx context.Context, lotID id.ID, remaining types.Money) error {
	q := r.Builder().
		Update(stockLotsTable).
		Set("remaining", remaining).
		Where(squirrel.Eq{"id": lotID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update lot: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update lot remaining: %w", err)
	}
	return nil
}
