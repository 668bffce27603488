package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"fincore/internal/core/security"
	"fincore/internal/domain/audit"
	"fincore/pkg/logger"
)

var _ audit.Recorder = (*AuditStore)(nil)

// compressionAlgo tags how the changes payload is stored.
type compressionAlgo string

const (
	compressionNone compressionAlgo = "none"
	compressionZstd compressionAlgo = "zstd"
)

// AuditStore persists audit records. Large change payloads (bulk
// updates, long invoices) are zstd-compressed.
type AuditStore struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder

	// compressThreshold in bytes; payloads above it are compressed.
	compressThreshold int
}

// NewAuditStore creates an audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements audit.Recorder. Audit failures are logged, never
// propagated: an audit outage must not block ledger operations.
func (s *AuditStore) Record(ctx context.Context, rec *audit.Record) error {
	if rec.UserID == "" {
		rec.UserID = security.GetUserID(ctx)
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	var changes []byte
	var compressed []byte
	algo := compressionNone

	if len(rec.Changes) > 0 {
		payload, err := json.Marshal(rec.Changes)
		if err != nil {
			logger.Error(ctx, "audit changes marshal failed", "entity", rec.Entity, "error", err)
			return nil
		}
		if len(payload) > s.compressThreshold {
			compressed = s.encoder.EncodeAll(payload, nil)
			algo = compressionZstd
		} else {
			changes = payload
		}
	}

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.Entity, rec.EntityID, rec.Action, rec.UserID,
		changes, compressed, algo, rec.At)
	if err != nil {
		logger.Error(ctx, "audit insert failed",
			"entity", rec.Entity, "entity_id", rec.EntityID, "error", err)
	}
	return nil
}

// DecodeChanges restores a stored changes payload, decompressing when
// needed.
func (s *AuditStore) DecodeChanges(changes, compressed []byte, algo string) (map[string]audit.FieldChange, error) {
	payload := changes
	if compressionAlgo(algo) == compressionZstd {
		decoded, err := s.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		payload = decoded
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var out map[string]audit.FieldChange
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	return out, nil
}
