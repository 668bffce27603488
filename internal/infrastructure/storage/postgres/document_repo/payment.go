package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fincore/internal/core/id"
	"fincore/internal/domain/documents/payment"
	"fincore/internal/infrastructure/storage/postgres"
)

const (
	paymentsTable    = "doc_payments"
	allocationsTable = "doc_payment_allocations"
)

var _ payment.Repository = (*PaymentRepo)(nil)

// PaymentRepo implements payment.Repository.
type PaymentRepo struct {
	*BaseDocumentRepo[*payment.Payment]
}

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txManager *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			paymentsTable,
			postgres.ExtractDBColumns[payment.Payment](),
			func() *payment.Payment { return &payment.Payment{} },
		),
	}
}

func (r *PaymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	return r.insertHeader(ctx, p, nil)
}

func (r *PaymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	return r.updateHeader(ctx, p, nil)
}

func (r *PaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*payment.Payment, error) {
	return r.getHeader(ctx, squirrel.Eq{"id": paymentID}, paymentID.String(), false)
}

func (r *PaymentRepo) GetForUpdate(ctx context.Context, paymentID id.ID) (*payment.Payment, error) {
	return r.getHeader(ctx, squirrel.Eq{"id": paymentID}, paymentID.String(), true)
}

func (r *PaymentRepo) CreateAllocation(ctx context.Context, a *payment.Allocation) error {
	q := r.Builder().
		Insert(allocationsTable).
		SetMap(postgres.StructToMap(a))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert allocation: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

func (r *PaymentRepo) GetAllocations(ctx context.Context, paymentID id.ID) ([]payment.Allocation, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[payment.Allocation]()...).
		From(allocationsTable).
		Where(squirrel.Eq{"payment_id": paymentID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var allocations []payment.Allocation
	if err := pgxscan.Select(ctx, r.querier(ctx), &allocations, sql, args...); err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	return allocations, nil
}

func (r *PaymentRepo) DeleteAllocation(ctx context.Context, allocationID id.ID) error {
	return r.deleteByID(ctx, allocationsTable, allocationID)
}

func (r *PaymentRepo) List(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(paymentsTable).
		OrderBy("date DESC", "number DESC")

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Reversed != nil {
		q = q.Where(squirrel.Eq{"reversed": *filter.Reversed})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectHeaders(ctx, q)
}

// ListUnallocated returns non-reversed payments with money still to
// allocate, oldest first.
func (r *PaymentRepo) ListUnallocated(ctx context.Context, customerID *id.ID) ([]*payment.Payment, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(paymentsTable).
		Where(squirrel.Eq{"reversed": false}).
		Where(squirrel.Gt{"unallocated_amount": 0}).
		OrderBy("date", "number")

	if customerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *customerID})
	}

	return r.selectHeaders(ctx, q)
}
