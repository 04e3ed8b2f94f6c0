package custody

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// HashPrefix marks content hashes produced by HashContent.
const HashPrefix = "sha256:"

// HashContent returns the canonical content hash of r.
func HashContent(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// RegisterDocument records a document under sessionID. Consent defaults to
// derived_only. Duplicate content hashes are allowed.
func (s *Service) RegisterDocument(ctx context.Context, sessionID uuid.UUID, doc types.NewEvidenceDocument) (uuid.UUID, error) {
	const op = "register_document"
	if err := requireID(op, "session id", sessionID); err != nil {
		return uuid.Nil, err
	}
	doc.ContentHash = strings.TrimSpace(doc.ContentHash)
	doc = doc.WithDefaults()
	if err := validateStruct(op, doc); err != nil {
		return uuid.Nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	created, err := s.store.InsertEvidenceDocument(ctx, sessionID, doc)
	if err != nil {
		return uuid.Nil, s.finish(op, sessionID, err, apperr.CodeWriteFailed)
	}
	return created.ID, nil
}

// RegisterItems inserts the batch in one transaction and returns the item IDs
// in input order. Either every item is stored or none is.
func (s *Service) RegisterItems(ctx context.Context, documentID uuid.UUID, items []types.NewEvidenceItem) ([]uuid.UUID, error) {
	const op = "register_items"
	if err := requireID(op, "document id", documentID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []uuid.UUID{}, nil
	}
	batch := make([]types.NewEvidenceItem, len(items))
	for i, item := range items {
		item.Label = strings.TrimSpace(item.Label)
		if err := types.Validate(item); err != nil {
			return nil, apperr.InvalidRequest(op, fmt.Sprintf("item %d: %v", i, err))
		}
		batch[i] = item
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	ids, err := s.store.InsertEvidenceItems(ctx, documentID, batch)
	if err != nil {
		return nil, s.finish(op, documentID, err, apperr.CodeWriteFailed)
	}
	return ids, nil
}

// RegisterItemsForSession checks the document belongs to sessionID before
// registering items on its behalf.
func (s *Service) RegisterItemsForSession(ctx context.Context, sessionID, documentID uuid.UUID, items []types.NewEvidenceItem) ([]uuid.UUID, error) {
	if _, err := s.Document(ctx, sessionID, documentID); err != nil {
		return nil, err
	}
	return s.RegisterItems(ctx, documentID, items)
}

// Document returns the document if it belongs to sessionID.
func (s *Service) Document(ctx context.Context, sessionID, documentID uuid.UUID) (*types.EvidenceDocument, error) {
	const op = "get_document"
	if sessionID == uuid.Nil || documentID == uuid.Nil {
		return nil, s.finish(op, documentID, apperr.NotOwned(op), apperr.CodeReadFailed)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.store.GetEvidenceDocument(ctx, sessionID, documentID)
	if err != nil {
		return nil, s.finish(op, documentID, err, apperr.CodeReadFailed)
	}
	return doc, nil
}

// DocumentsByHash lists the session's documents carrying contentHash, oldest first.
func (s *Service) DocumentsByHash(ctx context.Context, sessionID uuid.UUID, contentHash string) ([]types.EvidenceDocument, error) {
	const op = "documents_by_hash"
	if err := requireID(op, "session id", sessionID); err != nil {
		return nil, err
	}
	contentHash = strings.TrimSpace(contentHash)
	if contentHash == "" {
		return nil, apperr.InvalidRequest(op, "content hash is required")
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	docs, err := s.store.ListEvidenceDocumentsByHash(ctx, sessionID, contentHash)
	if err != nil {
		return nil, s.finish(op, sessionID, err, apperr.CodeReadFailed)
	}
	return docs, nil
}

// Items returns the document's items in registration order.
func (s *Service) Items(ctx context.Context, sessionID, documentID uuid.UUID) ([]types.EvidenceItem, error) {
	const op = "list_items"
	if sessionID == uuid.Nil || documentID == uuid.Nil {
		return nil, s.finish(op, documentID, apperr.NotOwned(op), apperr.CodeReadFailed)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	items, err := s.store.ListEvidenceItems(ctx, sessionID, documentID)
	if err != nil {
		return nil, s.finish(op, documentID, err, apperr.CodeReadFailed)
	}
	return items, nil
}
