package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

const documentColumns = `d.id, d.session_id, d.source_type, d.content_hash, d.storage_ref, d.consent_level, d.created_at`

// InsertEvidenceDocument registers a document under sessionID.
func (s *Store) InsertEvidenceDocument(ctx context.Context, sessionID uuid.UUID, in types.NewEvidenceDocument) (*types.EvidenceDocument, error) {
	in = in.WithDefaults()
	ts := now()
	doc := &types.EvidenceDocument{
		ID:           uuid.New(),
		SessionID:    sessionID,
		SourceType:   in.SourceType,
		ContentHash:  in.ContentHash,
		StorageRef:   in.StorageRef,
		ConsentLevel: in.ConsentLevel,
		CreatedAt:    fromNanos(ts),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evidence_documents (id, session_id, source_type, content_hash, storage_ref, consent_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, sessionID, string(doc.SourceType), doc.ContentHash, toNullString(doc.StorageRef), string(doc.ConsentLevel), ts,
	)
	if err != nil {
		return nil, classify("register_document", err, apperr.CodeWriteFailed)
	}
	return doc, nil
}

// GetEvidenceDocument returns the document when it belongs to sessionID.
func (s *Store) GetEvidenceDocument(ctx context.Context, sessionID, documentID uuid.UUID) (*types.EvidenceDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM evidence_documents d WHERE d.id = ? AND d.session_id = ?`,
		documentID, sessionID,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotOwned("get_document")
	}
	if err != nil {
		return nil, classify("get_document", err, apperr.CodeReadFailed)
	}
	return doc, nil
}

// ListEvidenceDocumentsByHash returns the session's documents with contentHash, oldest first.
func (s *Store) ListEvidenceDocumentsByHash(ctx context.Context, sessionID uuid.UUID, contentHash string) ([]types.EvidenceDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM evidence_documents d
		 WHERE d.session_id = ? AND d.content_hash = ?
		 ORDER BY d.created_at ASC, d.rowid ASC`,
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

// InsertEvidenceItems inserts the batch in one transaction. Any rejected row
// rolls back the whole batch.
func (s *Store) InsertEvidenceItems(ctx context.Context, documentID uuid.UUID, items []types.NewEvidenceItem) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(items))
	if len(items) == 0 {
		return ids, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("register_items", fmt.Errorf("failed to begin transaction: %w", err), apperr.CodeWriteFailed)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence_items (id, document_id, item_type, label, snippet, confidence, metadata, ordinal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, classify("register_items", fmt.Errorf("failed to prepare insert: %w", err), apperr.CodeWriteFailed)
	}
	defer stmt.Close()

	ts := now()
	for i, item := range items {
		metaJSON, err := json.Marshal(item.MetadataOrEmpty())
		if err != nil {
			return nil, apperr.InvalidRequest("register_items", "metadata is not JSON-serializable")
		}
		id := uuid.New()
		_, err = stmt.ExecContext(ctx,
			id, documentID, string(item.ItemType), item.Label, toNullString(item.Snippet),
			item.ConfidenceOrDefault(), string(metaJSON), i, ts,
		)
		if err != nil {
			return nil, classify("register_items", fmt.Errorf("failed to insert item %d: %w", i, err), apperr.CodeWriteFailed)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("register_items", fmt.Errorf("failed to commit transaction: %w", err), apperr.CodeWriteFailed)
	}
	return ids, nil
}

// ListEvidenceItems returns a document's items in registration order. The
// document must belong to sessionID.
func (s *Store) ListEvidenceItems(ctx context.Context, sessionID, documentID uuid.UUID) ([]types.EvidenceItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, i.id, i.item_type, i.label, i.snippet, i.confidence, i.metadata, i.created_at
		 FROM evidence_documents d
		 LEFT JOIN evidence_items i ON i.document_id = d.id
		 WHERE d.id = ? AND d.session_id = ?
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
			id         sql.NullString
			itemType   sql.NullString
			label      sql.NullString
			snippet    sql.NullString
			confidence sql.NullFloat64
			metadata   sql.NullString
			createdAt  sql.NullInt64
		)
		if err := rows.Scan(&docID, &id, &itemType, &label, &snippet, &confidence, &metadata, &createdAt); err != nil {
			return nil, classify("list_items", err, apperr.CodeReadFailed)
		}
		if !id.Valid {
			continue
		}
		itemID, err := uuid.Parse(id.String)
		if err != nil {
			return nil, classify("list_items", fmt.Errorf("failed to parse item id: %w", err), apperr.CodeReadFailed)
		}
		item := types.EvidenceItem{
			ID:         itemID,
			DocumentID: docID,
			ItemType:   types.ItemType(itemType.String),
			Label:      label.String,
			Snippet:    fromNullString(snippet),
			Confidence: confidence.Float64,
			CreatedAt:  fromNanos(createdAt.Int64),
		}
		if item.Metadata, err = decodeObject(metadata.String); err != nil {
			return nil, classify("list_items", err, apperr.CodeReadFailed)
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

func scanDocument(row rowScanner) (*types.EvidenceDocument, error) {
	var (
		doc        types.EvidenceDocument
		sourceType string
		consent    string
		storageRef sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&doc.ID, &doc.SessionID, &sourceType, &doc.ContentHash, &storageRef, &consent, &createdAt); err != nil {
		return nil, err
	}
	doc.SourceType = types.SourceType(sourceType)
	doc.ConsentLevel = types.ConsentLevel(consent)
	doc.StorageRef = fromNullString(storageRef)
	doc.CreatedAt = fromNanos(createdAt)
	return &doc, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func decodeObject(raw string) (map[string]any, error) {
	out := map[string]any{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
