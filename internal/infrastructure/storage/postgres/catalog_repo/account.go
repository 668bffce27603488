package catalog_repo

import (
	"fincore/internal/domain/catalogs/account"
	"fincore/internal/infrastructure/storage/postgres"
)

const accountsTable = "cat_accounts"

var _ account.Repository = (*AccountRepo)(nil)

// AccountRepo implements account.Repository.
type AccountRepo struct {
	*BaseCatalogRepo[*account.Account]
}

// NewAccountRepo creates a new chart-of-accounts repository.
func NewAccountRepo(txManager *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			accountsTable,
			postgres.ExtractDBColumns[account.Account](),
			func() *account.Account { return &account.Account{} },
		),
	}
}
