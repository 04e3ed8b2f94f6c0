package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// -----------------------------------------------------------------------------
// Evidence Methods
// -----------------------------------------------------------------------------

const documentColumns = `id, session_id, source_type, content_hash, storage_ref, consent_level, created_at`

// InsertEvidenceDocument registers a document under a session
func (db *DB) InsertEvidenceDocument(ctx context.Context, sessionID uuid.UUID, in types.NewEvidenceDocument) (*types.EvidenceDocument, error) {
	in = in.WithDefaults()
	row := db.pool.QueryRow(ctx,
		`INSERT INTO evidence_documents (session_id, source_type, content_hash, storage_ref, consent_level)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+documentColumns,
		sessionID, string(in.SourceType), in.ContentHash, in.StorageRef, string(in.ConsentLevel),
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, classify("register_document", err, apperr.CodeWriteFailed)
	}
	return doc, nil
}

// GetEvidenceDocument retrieves a document that belongs to sessionID
func (db *DB) GetEvidenceDocument(ctx context.Context, sessionID, documentID uuid.UUID) (*types.EvidenceDocument, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM evidence_documents WHERE id = $1 AND session_id = $2`,
		documentID, sessionID,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotOwned("get_document")
		}
		return nil, classify("get_document", err, apperr.CodeReadFailed)
	}
	return doc, nil
}

// ListEvidenceDocumentsByHash returns a session's documents with the given hash, oldest first
func (db *DB) ListEvidenceDocumentsByHash(ctx context.Context, sessionID uuid.UUID, contentHash string) ([]types.EvidenceDocument, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM evidence_documents
		 WHERE session_id = $1 AND content_hash = $2
		 ORDER BY created_at ASC, id ASC`,
		sessionID, contentHash,
	)
	if err != nil {
		return nil, classify("documents_by_hash", err, apperr.CodeReadFailed)
	}
	defer rows.Close()

	docs := []types.EvidenceDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, classify("documents_by_hash", err, apperr.CodeReadFailed)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("documents_by_hash", err, apperr.CodeReadFailed)
	}
	return docs, nil
}

// InsertEvidenceItems inserts a batch of items in a single transaction
func (db *DB) InsertEvidenceItems(ctx context.Context, documentID uuid.UUID, items []types.NewEvidenceItem) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(items))
	if len(items) == 0 {
		return ids, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, classify("register_items", fmt.Errorf("failed to begin transaction: %w", err), apperr.CodeWriteFailed)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, item := range items {
		metaJSON, err := json.Marshal(item.MetadataOrEmpty())
		if err != nil {
			return nil, apperr.InvalidRequest("register_items", "metadata is not JSON-serializable")
		}
		var id uuid.UUID
		err = tx.QueryRow(ctx,
			`INSERT INTO evidence_items (document_id, item_type, label, snippet, confidence, metadata, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			documentID, string(item.ItemType), item.Label, item.Snippet, item.ConfidenceOrDefault(), metaJSON, i,
		).Scan(&id)
		if err != nil {
			return nil, classify("register_items", fmt.Errorf("failed to insert item %d: %w", i, err), apperr.CodeWriteFailed)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("register_items", fmt.Errorf("failed to commit transaction: %w", err), apperr.CodeWriteFailed)
	}
	return ids, nil
}

// ListEvidenceItems returns a document's items in registration order. The
// document must belong to sessionID.
func (db *DB) ListEvidenceItems(ctx context.Context, sessionID, documentID uuid.UUID) ([]types.EvidenceItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT d.id, i.id, i.item_type, i.label, i.snippet, i.confidence, i.metadata, i.created_at
		 FROM evidence_documents d
		 LEFT JOIN evidence_items i ON i.document_id = d.id
		 WHERE d.id = $1 AND d.session_id = $2
		 ORDER BY i.created_at ASC, i.ordinal ASC`,
		documentID, sessionID,
	)
	if err != nil {
		return nil, classify("list_items", err, apperr.CodeReadFailed)
	}
	defer rows.Close()

	var matched bool
	items := []types.EvidenceItem{}
	for rows.Next() {
		matched = true
		var (
			docID      uuid.UUID
			id         *uuid.UUID
			itemType   *string
			label      *string
			snippet    *string
			confidence *float64
			metaJSON   []byte
			createdAt  *time.Time
		)
		if err := rows.Scan(&docID, &id, &itemType, &label, &snippet, &confidence, &metaJSON, &createdAt); err != nil {
			return nil, classify("list_items", err, apperr.CodeReadFailed)
		}
		if id == nil {
			continue
		}
		item := types.EvidenceItem{
			ID:         *id,
			DocumentID: docID,
			ItemType:   types.ItemType(*itemType),
			Label:      *label,
			Snippet:    snippet,
			Confidence: *confidence,
			Metadata:   map[string]any{},
			CreatedAt:  *createdAt,
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &item.Metadata); err != nil {
				return nil, classify("list_items", fmt.Errorf("failed to unmarshal metadata: %w", err), apperr.CodeReadFailed)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_items", err, apperr.CodeReadFailed)
	}
	if !matched {
		return nil, apperr.NotOwned("list_items")
	}
	return items, nil
}

func scanDocument(row pgx.Row) (*types.EvidenceDocument, error) {
	var doc types.EvidenceDocument
	var sourceType, consent string
	if err := row.Scan(&doc.ID, &doc.SessionID, &sourceType, &doc.ContentHash, &doc.StorageRef, &consent, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.SourceType = types.SourceType(sourceType)
	doc.ConsentLevel = types.ConsentLevel(consent)
	return &doc, nil
}
