// Package config holds the business configuration consumed by the ledger
// engines. The values are supplied by the configuration collaborator and
// passed explicitly into services at construction time — never read from
// a process-wide singleton, so tests can vary toggles without global state.
package config

// Settings contains credit-control and stock-control toggles plus
// sequence seeds. Treated as read-only by this core.
type Settings struct {
	// ForceCreditLimit enables the credit-limit gate during invoice
	// generation. Cash sales are exempt regardless.
	ForceCreditLimit bool

	// AllowNegativeStock permits on-hand quantity to go negative on issue.
	// When false, an issue that would oversell is rejected.
	AllowNegativeStock bool

	// SequenceSeeds optionally seed the document number counters
	// (key: sequence prefix, e.g. "INV", "PAY", "JNL").
	SequenceSeeds map[string]int64
}

// Default returns production-safe defaults: credit control on,
// negative stock disallowed.
func Default() Settings {
	return Settings{
		ForceCreditLimit:   true,
		AllowNegativeStock: false,
	}
}
