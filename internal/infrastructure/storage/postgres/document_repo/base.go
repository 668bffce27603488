// Package document_repo provides PostgreSQL implementations for document
// repositories: invoices, payments, journal entries.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides common header CRUD for document entities.
// Line tables differ per document type, so those stay in the concrete
// repositories.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	selectCols []string
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// headerMap extracts the entity's header columns via "db" tags, plus any
// extra columns the concrete repository maintains outside struct tags
// (JSONB projections and the like).
func (r *BaseDocumentRepo[T]) headerMap(entity T, extra map[string]any) (map[string]any, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return nil, fmt.Errorf("no db tags found in entity")
	}

	filtered := make(map[string]any, len(r.selectCols)+len(extra))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	for col, val := range extra {
		filtered[col] = val
	}
	return filtered, nil
}

// insertHeader inserts the document header row.
func (r *BaseDocumentRepo[T]) insertHeader(ctx context.Context, entity T, extra map[string]any) error {
	data, err := r.headerMap(entity, extra)
	if err != nil {
		return err
	}

	q := r.Builder().
		Insert(r.tableName).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// updateHeader updates the document header row with optimistic locking.
func (r *BaseDocumentRepo[T]) updateHeader(ctx context.Context, entity T, extra map[string]any) error {
	data, err := r.headerMap(entity, extra)
	if err != nil {
		return err
	}

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field with db tag")
	}

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}
	delete(data, "id")
	delete(data, "version")

	// Touch() already bumped the in-memory version; the stored row still
	// carries the previous one.
	q := r.Builder().
		Update(r.tableName).
		SetMap(data).
		Set("version", version).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Lt{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tableName, entityID)
	}
	return nil
}

// getHeader retrieves one header row by an equality condition.
func (r *BaseDocumentRepo[T]) getHeader(ctx context.Context, where squirrel.Eq, ref string, forUpdate bool) (T, error) {
	entity := r.newFn()

	q := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(where).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.tableName, ref)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return entity, nil
}

// selectHeaders runs a SELECT builder and scans all rows.
func (r *BaseDocumentRepo[T]) selectHeaders(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return items, nil
}

// deleteByID removes one row from any table by primary key.
func (r *BaseDocumentRepo[T]) deleteByID(ctx context.Context, table string, rowID id.ID) error {
	q := r.Builder().
		Delete(table).
		Where(squirrel.Eq{"id": rowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
