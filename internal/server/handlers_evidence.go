package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/labstack/echo/v4"
)

// RegisterDocumentRequest is the body of POST /v1/documents. When ContentHash
// is empty and Content is set, the hash is computed from Content; the content
// itself is never stored.
type RegisterDocumentRequest struct {
	types.NewEvidenceDocument
	Content string `json:"content,omitempty"`
}

// RegisterItemsRequest is the body of POST /v1/documents/:document_id/items.
type RegisterItemsRequest struct {
	Items []types.NewEvidenceItem `json:"items"`
}

// handleRegisterDocument records a document under the caller's session.
// POST /v1/documents
func (s *Server) handleRegisterDocument(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req RegisterDocumentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	doc := req.NewEvidenceDocument
	if doc.ContentHash == "" && req.Content != "" {
		hash, err := custody.HashContent(strings.NewReader(req.Content))
		if err != nil {
			return writeError(c, err)
		}
		doc.ContentHash = hash
	}

	docID, err := s.svc.RegisterDocument(c.Request().Context(), sid, doc)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"id": docID, "content_hash": doc.ContentHash})
}

// handleDocumentsByHash lists the caller's documents with a content hash.
// GET /v1/documents?content_hash=
func (s *Server) handleDocumentsByHash(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	docs, err := s.svc.DocumentsByHash(ctx, sid, c.QueryParam("content_hash"))
	if err != nil {
		return writeError(c, err)
	}

	out := make([]types.EvidenceDocument, 0, len(docs))
	for _, doc := range docs {
		surfaced, _, err := s.consent.Surface(ctx, doc, nil)
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, surfaced)
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": out})
}

// handleGetDocument returns one of the caller's documents.
// GET /v1/documents/:document_id
func (s *Server) handleGetDocument(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	docID, err := pathID(c, "document_id")
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	doc, err := s.svc.Document(ctx, sid, docID)
	if err != nil {
		return writeError(c, err)
	}
	surfaced, _, err := s.consent.Surface(ctx, *doc, nil)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, surfaced)
}

// handleRegisterItems adds a batch of items to one of the caller's documents.
// POST /v1/documents/:document_id/items
func (s *Server) handleRegisterItems(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	docID, err := pathID(c, "document_id")
	if err != nil {
		return writeError(c, err)
	}

	var req RegisterItemsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ids, err := s.svc.RegisterItemsForSession(c.Request().Context(), sid, docID, req.Items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"ids": ids})
}

// handleListItems returns a document's items filtered by its consent level.
// GET /v1/documents/:document_id/items
func (s *Server) handleListItems(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	docID, err := pathID(c, "document_id")
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	doc, err := s.svc.Document(ctx, sid, docID)
	if err != nil {
		return writeError(c, err)
	}
	items, err := s.svc.Items(ctx, sid, docID)
	if err != nil {
		return writeError(c, err)
	}

	surfacedDoc, surfacedItems, err := s.consent.Surface(ctx, *doc, items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"document": surfacedDoc,
		"items":    surfacedItems,
	})
}
