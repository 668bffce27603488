package payment

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/internal/domain/audit"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/discount"
	"fincore/internal/domain/documents/invoice"
	"fincore/pkg/numerator"
)

// --- Mocks ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqRow struct{ val int64 }

func (r seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct{ current int64 }

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.current++
	return seqRow{val: q.current}
}

type memPayments struct {
	payments    map[id.ID]*Payment
	allocations map[id.ID]*Allocation
}

func newMemPayments() *memPayments {
	return &memPayments{payments: make(map[id.ID]*Payment), allocations: make(map[id.ID]*Allocation)}
}

func (r *memPayments) Create(ctx context.Context, p *Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPayments) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("payment", paymentID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *memPayments) Update(ctx context.Context, p *Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPayments) GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return r.GetByID(ctx, paymentID)
}

func (r *memPayments) CreateAllocation(ctx context.Context, a *Allocation) error {
	cp := *a
	r.allocations[a.ID] = &cp
	return nil
}

func (r *memPayments) GetAllocations(ctx context.Context, paymentID id.ID) ([]Allocation, error) {
	var out []Allocation
	for _, a := range r.allocations {
		if a.PaymentID == paymentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memPayments) DeleteAllocation(ctx context.Context, allocationID id.ID) error {
	delete(r.allocations, allocationID)
	return nil
}

func (r *memPayments) List(ctx context.Context, filter ListFilter) ([]*Payment, error) {
	var out []*Payment
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out, nil
}

func (r *memPayments) ListUnallocated(ctx context.Context, customerID *id.ID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range r.payments {
		if p.Reversed || !p.UnallocatedAmount.IsPositive() {
			continue
		}
		if customerID != nil && p.CustomerID != *customerID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type memInvoices struct{ invoices map[id.ID]*invoice.Invoice }

func newMemInvoices(invs ...*invoice.Invoice) *memInvoices {
	m := &memInvoices{invoices: make(map[id.ID]*invoice.Invoice)}
	for _, inv := range invs {
		m.invoices[inv.ID] = inv
	}
	return m
}

func (m *memInvoices) Create(ctx context.Context, inv *invoice.Invoice) error {
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memInvoices) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", number)
}

func (m *memInvoices) Update(ctx context.Context, inv *invoice.Invoice) error {
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *memInvoices) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return m.GetByID(ctx, invoiceID)
}

func (m *memInvoices) GetLines(ctx context.Context, invoiceID id.ID) ([]invoice.Line, error) {
	return nil, nil
}

func (m *memInvoices) SaveLines(ctx context.Context, invoiceID id.ID, lines []invoice.Line) error {
	return nil
}

func (m *memInvoices) CreateBackOrder(ctx context.Context, bo *invoice.BackOrder) error { return nil }

func (m *memInvoices) GetBackOrders(ctx context.Context, invoiceID id.ID) ([]invoice.BackOrder, error) {
	return nil, nil
}

func (m *memInvoices) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	return nil, nil
}

func (m *memInvoices) ListUnpaidByCustomer(ctx context.Context, customerID id.ID) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, inv := range m.invoices {
		if inv.CustomerID == customerID && !inv.IsPaid && inv.Status == invoice.StatusOpen {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type memCustomers struct{ byID map[id.ID]*customer.Customer }

func newMemCustomers(custs ...*customer.Customer) *memCustomers {
	m := &memCustomers{byID: make(map[id.ID]*customer.Customer)}
	for _, c := range custs {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCustomers) Create(ctx context.Context, c *customer.Customer) error {
	m.byID[c.ID] = c
	return nil
}

func (m *memCustomers) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	c, ok := m.byID[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) GetByCode(ctx context.Context, code string) (*customer.Customer, error) {
	for _, c := range m.byID {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("customer", code)
}

func (m *memCustomers) Update(ctx context.Context, c *customer.Customer) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCustomers) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return m.GetByID(ctx, customerID)
}

func (m *memCustomers) List(ctx context.Context, limit, offset int) ([]*customer.Customer, error) {
	return nil, nil
}

// --- Fixtures ---

type fixture struct {
	svc       *Service
	payments  *memPayments
	invoices  *memInvoices
	customers *memCustomers
	cust      *customer.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cust := customer.NewCustomer("CUST01", "Alpha Trading")
	cust.SettlementDays = 10
	cust.SettlementPct = types.MustMoney("2.5")

	payments := newMemPayments()
	invoices := newMemInvoices()
	customers := newMemCustomers(cust)

	svc := NewService(
		payments, invoices, customers,
		discount.NewEngine(discount.DefaultLimitTable()),
		numerator.New(numerator.Static(&seqQuerier{})),
		fakeTxManager{},
	)
	return &fixture{svc: svc, payments: payments, invoices: invoices, customers: customers, cust: cust}
}

func openInvoice(cust *customer.Customer, number string, gross string, date time.Time) *invoice.Invoice {
	inv := invoice.NewInvoice(cust.ID, cust.Code, date)
	inv.Number = number
	inv.GrossTotal = types.MustMoney(gross)
	inv.Balance = inv.GrossTotal
	return inv
}

func jan(day int) time.Time {
	return time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
}

// assertConserved checks the payment conservation invariant.
func assertConserved(t *testing.T, p *Payment) {
	t.Helper()
	assert.True(t, p.AllocatedAmount.Add(p.UnallocatedAmount).Equal(p.Amount),
		"allocated %s + unallocated %s != amount %s",
		p.AllocatedAmount, p.UnallocatedAmount, p.Amount)
}

// --- Tests ---

func TestCreate_ReducesCustomerBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cust.Balance = types.MustMoney("500.00")
	f.customers.byID[f.cust.ID] = f.cust

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID,
		Date:       jan(5),
		Amount:     types.MustMoney("200.00"),
		Method:     MethodBankTransfer,
		Reference:  "BACS-123",
	})
	require.NoError(t, err)

	assert.Equal(t, "PAY-2026-00001", p.Number)
	assert.True(t, p.UnallocatedAmount.Equal(p.Amount))
	assert.True(t, p.AllocatedAmount.IsZero())
	assertConserved(t, p)

	cust, err := f.customers.GetByID(ctx, f.cust.ID)
	require.NoError(t, err)
	assert.True(t, cust.Balance.Equal(types.MustMoney("300.00")))
}

func TestAllocate_PartialBatchSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := customer.NewCustomer("CUST02", "Beta Ltd")
	f.customers.byID[other.ID] = other

	invGood := openInvoice(f.cust, "INV-1", "120.00", jan(1))
	invForeign := openInvoice(other, "INV-2", "80.00", jan(1))
	invPaid := openInvoice(f.cust, "INV-3", "50.00", jan(1))
	invPaid.ApplyAllocation(types.MustMoney("50.00"), types.Zero())
	require.True(t, invPaid.IsPaid)

	f.invoices = newMemInvoices(invGood, invForeign, invPaid)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(5),
		Amount: types.MustMoney("300.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	results, err := f.svc.Allocate(ctx, p.ID, []AllocationRequest{
		{InvoiceID: invGood.ID, Amount: types.MustMoney("120.00")},
		{InvoiceID: id.New(), Amount: types.MustMoney("10.00")},
		{InvoiceID: invForeign.ID, Amount: types.MustMoney("10.00")},
		{InvoiceID: invPaid.ID, Amount: types.MustMoney("10.00")},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, AllocSuccess, results[0].Status)
	assert.True(t, results[0].Allocated.Equal(types.MustMoney("120.00")))
	assert.Equal(t, AllocNotFound, results[1].Status)
	assert.Equal(t, AllocWrongCustomer, results[2].Status)
	assert.Equal(t, AllocAlreadyPaid, results[3].Status)

	// The one success still committed.
	stored, err := f.invoices.GetByID(ctx, invGood.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.True(t, stored.Balance.IsZero())

	pAfter, err := f.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, pAfter.AllocatedAmount.Equal(types.MustMoney("120.00")))
	assertConserved(t, pAfter)
}

func TestAllocate_CappedByInvoiceBalanceAndPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv1 := openInvoice(f.cust, "INV-1", "70.00", jan(1))
	inv2 := openInvoice(f.cust, "INV-2", "500.00", jan(2))
	f.invoices = newMemInvoices(inv1, inv2)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(5),
		Amount: types.MustMoney("100.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	results, err := f.svc.Allocate(ctx, p.ID, []AllocationRequest{
		// Asks for more than the invoice owes: capped at 70.
		{InvoiceID: inv1.ID, Amount: types.MustMoney("90.00")},
		// Asks for more than the payment has left: capped at 30.
		{InvoiceID: inv2.ID, Amount: types.MustMoney("400.00")},
		// Payment exhausted: NO_AMOUNT, not an error.
		{InvoiceID: inv2.ID, Amount: types.MustMoney("10.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, AllocSuccess, results[0].Status)
	assert.True(t, results[0].Allocated.Equal(types.MustMoney("70.00")))
	assert.Equal(t, AllocSuccess, results[1].Status)
	assert.True(t, results[1].Allocated.Equal(types.MustMoney("30.00")))
	assert.Equal(t, AllocNoAmount, results[2].Status)

	pAfter, err := f.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, pAfter.UnallocatedAmount.IsZero())
	assertConserved(t, pAfter)
}

func TestAllocate_SettlementDiscountWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Invoice 2026-01-01, window 10 days, payment on the 8th: eligible.
	inv := openInvoice(f.cust, "INV-1", "1000.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(8),
		Amount: types.MustMoney("975.00"), Method: MethodBankTransfer,
	})
	require.NoError(t, err)

	results, err := f.svc.Allocate(ctx, p.ID, []AllocationRequest{{
		InvoiceID:         inv.ID,
		Amount:            types.MustMoney("975.00"),
		DiscountRequested: types.MustMoney("25.00"),
	}})
	require.NoError(t, err)

	// 2.5% of 1000.00 = 25.00: full requested discount granted.
	require.Equal(t, AllocSuccess, results[0].Status)
	assert.True(t, results[0].DiscountTaken.Equal(types.MustMoney("25.00")))
	assert.True(t, results[0].Allocated.Equal(types.MustMoney("975.00")))

	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid, "975 cash + 25 discount settles 1000")
	assert.True(t, stored.Balance.IsZero())

	// The forgiven 25.00 also comes off the customer balance.
	cust, err := f.customers.GetByID(ctx, f.cust.ID)
	require.NoError(t, err)
	assert.True(t, cust.Balance.Equal(types.MustMoney("-1000.00")))
}

func TestAllocate_DiscountCappedAtSettlementPct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := openInvoice(f.cust, "INV-1", "1000.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(8),
		Amount: types.MustMoney("900.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	results, err := f.svc.Allocate(ctx, p.ID, []AllocationRequest{{
		InvoiceID:         inv.ID,
		Amount:            types.MustMoney("900.00"),
		DiscountRequested: types.MustMoney("100.00"), // over the 25.00 cap
	}})
	require.NoError(t, err)

	require.Equal(t, AllocSuccess, results[0].Status)
	assert.True(t, results[0].DiscountTaken.Equal(types.MustMoney("25.00")))
}

func TestAllocate_DiscountOutsideWindowRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Payment on day 15 of a 10-day window.
	inv := openInvoice(f.cust, "INV-1", "1000.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(15),
		Amount: types.MustMoney("975.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	results, err := f.svc.Allocate(ctx, p.ID, []AllocationRequest{{
		InvoiceID:         inv.ID,
		Amount:            types.MustMoney("975.00"),
		DiscountRequested: types.MustMoney("25.00"),
	}})
	require.NoError(t, err)

	require.Equal(t, AllocDiscountNotAllowed, results[0].Status)

	// Nothing applied: the invoice is untouched.
	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(types.MustMoney("1000.00")))
}

func TestAllocate_PaidWithinTolerance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := openInvoice(f.cust, "INV-1", "100.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(5),
		Amount: types.MustMoney("99.99"), Method: MethodCash,
	})
	require.NoError(t, err)

	_, err = f.svc.Allocate(ctx, p.ID, []AllocationRequest{
		{InvoiceID: inv.ID, Amount: types.MustMoney("99.99")},
	})
	require.NoError(t, err)

	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(types.MustMoney("0.01")))
	assert.True(t, stored.IsPaid, "balance of 0.01 is within paid tolerance")
}

func TestReverse_RestoresEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cust.Balance = types.MustMoney("1000.00")
	f.customers.byID[f.cust.ID] = f.cust

	inv := openInvoice(f.cust, "INV-1", "1000.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(8),
		Amount: types.MustMoney("975.00"), Method: MethodBankTransfer,
	})
	require.NoError(t, err)

	_, err = f.svc.Allocate(ctx, p.ID, []AllocationRequest{{
		InvoiceID:         inv.ID,
		Amount:            types.MustMoney("975.00"),
		DiscountRequested: types.MustMoney("25.00"),
	}})
	require.NoError(t, err)

	reversed, err := f.svc.Reverse(ctx, p.ID, "bounced cheque")
	require.NoError(t, err)
	assert.True(t, reversed.Reversed)
	assert.NotNil(t, reversed.ReversedAt)
	assertConserved(t, reversed)

	// Invoice fully restored.
	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(types.MustMoney("1000.00")))
	assert.True(t, stored.AmountPaid.IsZero())
	assert.False(t, stored.IsPaid)

	// Customer balance back to its pre-payment value.
	cust, err := f.customers.GetByID(ctx, f.cust.ID)
	require.NoError(t, err)
	assert.True(t, cust.Balance.Equal(types.MustMoney("1000.00")))

	// Allocations are gone.
	allocs, err := f.payments.GetAllocations(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, allocs)
}

func TestReverse_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(5),
		Amount: types.MustMoney("100.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	_, err = f.svc.Reverse(ctx, p.ID, "first")
	require.NoError(t, err)

	_, err = f.svc.Reverse(ctx, p.ID, "second")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyReversed))
}

func TestAllocate_ReversedPaymentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := openInvoice(f.cust, "INV-1", "100.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(5),
		Amount: types.MustMoney("100.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	_, err = f.svc.Reverse(ctx, p.ID, "mistake")
	require.NoError(t, err)

	_, err = f.svc.Allocate(ctx, p.ID, []AllocationRequest{
		{InvoiceID: inv.ID, Amount: types.MustMoney("100.00")},
	})
	require.Error(t, err)
}

func TestAutoAllocate_OldestFirstSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldest := openInvoice(f.cust, "INV-1", "100.00", jan(1))
	middle := openInvoice(f.cust, "INV-2", "200.00", jan(10))
	newest := openInvoice(f.cust, "INV-3", "300.00", jan(20))
	f.invoices = newMemInvoices(oldest, middle, newest)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(25),
		Amount: types.MustMoney("250.00"), Method: MethodBankTransfer,
	})
	require.NoError(t, err)

	summary, err := f.svc.AutoAllocate(ctx, &f.cust.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PaymentsProcessed)
	assert.Equal(t, 2, summary.AllocationsCreated)
	assert.True(t, summary.TotalAllocated.Equal(types.MustMoney("250.00")))

	// Oldest settled in full, middle partially; the payment is exhausted
	// before the newest invoice is reached.
	first, _ := f.invoices.GetByID(ctx, oldest.ID)
	assert.True(t, first.IsPaid)

	second, _ := f.invoices.GetByID(ctx, middle.ID)
	assert.True(t, second.Balance.Equal(types.MustMoney("50.00")))

	third, _ := f.invoices.GetByID(ctx, newest.ID)
	assert.True(t, third.Balance.Equal(types.MustMoney("300.00")))

	pAfter, err := f.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, pAfter.UnallocatedAmount.IsZero())
	assertConserved(t, pAfter)

	// No discounts in an automatic sweep.
	allocs, err := f.payments.GetAllocations(ctx, p.ID)
	require.NoError(t, err)
	for _, a := range allocs {
		assert.True(t, a.DiscountTaken.IsZero())
	}
}

type recorderSpy struct{ records []*audit.Record }

func (r *recorderSpy) Record(ctx context.Context, rec *audit.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func TestLifecycle_EmitsAuditRecords(t *testing.T) {
	f := newFixture(t)
	spy := &recorderSpy{}
	f.svc.WithAudit(spy)
	ctx := context.Background()

	inv := openInvoice(f.cust, "INV-1", "100.00", jan(1))
	f.invoices = newMemInvoices(inv)
	f.svc.invoices = f.invoices

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(5),
		Amount: types.MustMoney("100.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	require.Len(t, spy.records, 1)
	assert.Equal(t, "payment", spy.records[0].Entity)
	assert.Equal(t, p.ID, spy.records[0].EntityID)
	assert.Equal(t, audit.ActionInsert, spy.records[0].Action)

	_, err = f.svc.Allocate(ctx, p.ID, []AllocationRequest{
		{InvoiceID: inv.ID, Amount: types.MustMoney("100.00")},
	})
	require.NoError(t, err)

	require.Len(t, spy.records, 2)
	rec := spy.records[1]
	assert.Equal(t, audit.ActionUpdate, rec.Action)
	assert.True(t, rec.Changes["unallocated"].Old.(types.Money).Equal(types.MustMoney("100.00")))
	assert.True(t, rec.Changes["unallocated"].New.(types.Money).IsZero())

	_, err = f.svc.Reverse(ctx, p.ID, "bounced")
	require.NoError(t, err)

	require.Len(t, spy.records, 3)
	rec = spy.records[2]
	assert.Equal(t, audit.ActionReverse, rec.Action)
	assert.Equal(t, false, rec.Changes["reversed"].Old)
	assert.Equal(t, true, rec.Changes["reversed"].New)
}

func TestConservation_RandomisedSequence(t *testing.T) {
	// Invariant: allocated + unallocated == amount after any sequence of
	// allocate and reverse operations.
	f := newFixture(t)
	ctx := context.Background()

	var invs []*invoice.Invoice
	for i, gross := range []string{"33.33", "120.00", "5.00", "999.99"} {
		inv := openInvoice(f.cust, "INV-"+gross, gross, jan(i+1))
		invs = append(invs, inv)
		require.NoError(t, f.invoices.Create(ctx, inv))
	}

	p, err := f.svc.Create(ctx, CreateRequest{
		CustomerID: f.cust.ID, Date: jan(10),
		Amount: types.MustMoney("500.00"), Method: MethodCash,
	})
	require.NoError(t, err)

	amounts := []string{"33.33", "50.00", "0.01", "400.00", "200.00"}
	for i, amt := range amounts {
		_, err := f.svc.Allocate(ctx, p.ID, []AllocationRequest{
			{InvoiceID: invs[i%len(invs)].ID, Amount: types.MustMoney(amt)},
		})
		require.NoError(t, err)

		current, err := f.payments.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assertConserved(t, current)
	}

	reversed, err := f.svc.Reverse(ctx, p.ID, "sequence test")
	require.NoError(t, err)
	assertConserved(t, reversed)
	assert.True(t, reversed.AllocatedAmount.IsZero())
}
