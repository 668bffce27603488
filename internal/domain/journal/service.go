package journal

import (
	"context"
	"fmt"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/core/security"
	"fincore/internal/core/tx"
	"fincore/internal/domain/audit"
	"fincore/internal/domain/catalogs/account"
	"fincore/pkg/logger"
	"fincore/pkg/numerator"
)

// Service provides journal entry creation, posting and reversal.
//
// State machine: PENDING -> POSTED (terminal). An unbalanced entry is
// rejected at creation and never stored. Reversal creates a new linked
// REVERSAL entry; the original stays POSTED forever.
type Service struct {
	repo      Repository
	accounts  account.Repository
	numerator *numerator.Service
	txManager tx.Manager

	// audits is optional; when set, entry creation, posting and
	// reversal leave audit trail records.
	audits audit.Recorder
}

// NewService creates a journal service.
func NewService(repo Repository, accounts account.Repository, num *numerator.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		numerator: num,
		txManager: txManager,
	}
}

// WithAudit wires the audit trail recorder.
func (s *Service) WithAudit(rec audit.Recorder) *Service {
	s.audits = rec
	return s
}

// auditSnapshot captures the entry fields tracked in the audit trail.
func auditSnapshot(e *Entry) map[string]any {
	return map[string]any{
		"number":      e.Number,
		"status":      string(e.Status),
		"type":        string(e.Type),
		"description": e.Description,
		"totalDebit":  e.TotalDebit,
		"totalCredit": e.TotalCredit,
	}
}

func (s *Service) recordAudit(ctx context.Context, e *Entry, action audit.Action, before map[string]any) {
	if s.audits == nil {
		return
	}
	rec := audit.NewRecord("journal_entry", e.ID, action,
		audit.Changes(before, auditSnapshot(e)), security.GetUserID(ctx))
	_ = s.audits.Record(ctx, rec)
}

// Create validates and persists a pending entry. Entries that do not
// balance, or that reference non-postable accounts, are rejected before
// any write.
func (s *Service) Create(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(ctx); err != nil {
		return err
	}

	for i, line := range entry.Lines {
		acct, err := s.accounts.GetByID(ctx, line.AccountID)
		if err != nil {
			return err
		}
		if !acct.AllowPosting {
			return apperror.NewBusinessRule(
				apperror.CodeAccountNotPostable,
				fmt.Sprintf("Account %s is a header account and does not accept postings", acct.Code),
			).WithDetail("account", acct.Code).WithDetail("lineNo", i+1)
		}
		entry.Lines[i].AccountCode = acct.Code
	}

	if entry.Number == "" {
		cfg := numerator.DefaultConfig("JNL")
		number, err := s.numerator.GetNextNumber(ctx, cfg, nil, entry.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		entry.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		if err := s.repo.SaveLines(ctx, entry.ID, entry.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		s.recordAudit(ctx, entry, audit.ActionInsert, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "journal entry created",
		"id", entry.ID, "number", entry.Number, "total", entry.TotalDebit.String())
	return nil
}

// GetByID retrieves an entry with lines.
func (s *Service) GetByID(ctx context.Context, entryID id.ID) (*Entry, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	entry.Lines = lines

	return entry, nil
}

// Post transitions a pending entry to POSTED. Posting an already-posted
// entry is an error, not a no-op.
func (s *Service) Post(ctx context.Context, entryID id.ID) (*Entry, error) {
	entry, err := s.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if entry.IsPosted() {
		return nil, apperror.NewAlreadyPosted("journal entry", entryID.String())
	}

	before := auditSnapshot(entry)
	entry.MarkPosted(security.GetUserID(ctx), time.Now().UTC())

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, entry); err != nil {
			return err
		}
		s.recordAudit(ctx, entry, audit.ActionPost, before)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "journal entry posted", "id", entry.ID, "number", entry.Number)
	return entry, nil
}

// Reverse creates a new REVERSAL entry with every line's debit and credit
// swapped, linked to the original, and posts it immediately. The original
// is never modified. Each entry can be reversed at most once.
func (s *Service) Reverse(ctx context.Context, entryID id.ID, reason string) (*Entry, error) {
	original, err := s.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if !original.IsPosted() {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Only posted entries can be reversed",
		).WithDetail("entry", original.Number)
	}
	if original.Type == EntryReversal {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"A reversal entry cannot itself be reversed",
		).WithDetail("entry", original.Number)
	}
	if existing, err := s.repo.GetReversalOf(ctx, original.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperror.NewAlreadyReversed("journal entry", original.Number).
			WithDetail("reversal", existing.Number)
	}

	reversal := NewEntry(time.Now().UTC(), fmt.Sprintf("Reversal of %s: %s", original.Number, reason), original.SourceModule)
	reversal.Type = EntryReversal
	reversal.OriginalJournalID = &original.ID
	for _, line := range original.Lines {
		reversal.AddLine(line.AccountID, line.AccountCode, line.Description, line.Credit, line.Debit)
	}

	cfg := numerator.DefaultConfig("JNL")
	number, err := s.numerator.GetNextNumber(ctx, cfg, nil, reversal.Date)
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	reversal.Number = number

	// Reversals are never left pending.
	reversal.MarkPosted(security.GetUserID(ctx), time.Now().UTC())

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, reversal); err != nil {
			return fmt.Errorf("create reversal: %w", err)
		}
		if err := s.repo.SaveLines(ctx, reversal.ID, reversal.Lines); err != nil {
			return err
		}
		s.recordAudit(ctx, reversal, audit.ActionReverse, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "journal entry reversed",
		"original", original.Number, "reversal", reversal.Number, "reason", reason)
	return reversal, nil
}

// List retrieves entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	return s.repo.List(ctx, filter)
}
