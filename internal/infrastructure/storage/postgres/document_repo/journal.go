package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fincore/internal/core/id"
	"fincore/internal/domain/journal"
	"fincore/internal/infrastructure/storage/postgres"
)

const (
	journalsTable     = "doc_journal_entries"
	journalLinesTable = "doc_journal_lines"
)

var _ journal.Repository = (*JournalRepo)(nil)

// JournalRepo implements journal.Repository.
type JournalRepo struct {
	*BaseDocumentRepo[*journal.Entry]
}

// NewJournalRepo creates a new journal entry repository.
func NewJournalRepo(txManager *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			journalsTable,
			postgres.ExtractDBColumns[journal.Entry](),
			func() *journal.Entry { return &journal.Entry{} },
		),
	}
}

func (r *JournalRepo) Create(ctx context.Context, entry *journal.Entry) error {
	return r.insertHeader(ctx, entry, nil)
}

func (r *JournalRepo) Update(ctx context.Context, entry *journal.Entry) error {
	return r.updateHeader(ctx, entry, nil)
}

func (r *JournalRepo) GetByID(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	return r.getHeader(ctx, squirrel.Eq{"id": entryID}, entryID.String(), false)
}

func (r *JournalRepo) GetLines(ctx context.Context, entryID id.ID) ([]journal.Line, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[journal.Line]()...).
		From(journalLinesTable).
		Where(squirrel.Eq{"entry_id": entryID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []journal.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

func (r *JournalRepo) SaveLines(ctx context.Context, entryID id.ID, lines []journal.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + journalLinesTable + " WHERE entry_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, entryID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(journalLinesTable).
		Columns(
			"line_id", "entry_id", "line_no",
			"account_id", "account_code", "description", "debit", "credit",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, entryID, line.LineNo,
			line.AccountID, line.AccountCode, line.Description, line.Debit, line.Credit,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// GetReversalOf returns the reversal entry linked to the original, or nil
// when the original has not been reversed.
func (r *JournalRepo) GetReversalOf(ctx context.Context, originalID id.ID) (*journal.Entry, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(journalsTable).
		Where(squirrel.Eq{"original_journal_id": originalID}).
		Where(squirrel.Eq{"type": journal.EntryReversal}).
		Limit(1)

	entries, err := r.selectHeaders(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (r *JournalRepo) List(ctx context.Context, filter journal.ListFilter) ([]*journal.Entry, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(journalsTable).
		OrderBy("date", "number")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SourceModule != nil {
		q = q.Where(squirrel.Eq{"source_module": *filter.SourceModule})
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
