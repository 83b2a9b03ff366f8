package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

// DocumentRepository manages metadata rows for uploaded files.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document metadata row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, owner_user_id, kind, file_name, mime_type, size_bytes, storage_path, created_at) VALUES (:id, :owner_user_id, :kind, :file_name, :mime_type, :size_bytes, :storage_path, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID fetches a document by ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, owner_user_id, kind, file_name, mime_type, size_bytes, storage_path, created_at FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByOwner returns a user's documents, newest first.
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]models.Document, error) {
	const query = `SELECT id, owner_user_id, kind, file_name, mime_type, size_bytes, storage_path, created_at FROM documents WHERE owner_user_id = $1 ORDER BY created_at DESC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, ownerUserID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document row verifying ownership and returns the stored
// path so the caller can remove the bytes.
func (r *DocumentRepository) Delete(ctx context.Context, ownerUserID, id string) (string, error) {
	const query = `DELETE FROM documents WHERE id = $1 AND owner_user_id = $2 RETURNING storage_path`
	var path string
	if err := r.db.GetContext(ctx, &path, query, id, ownerUserID); err != nil {
		return "", err
	}
	return path, nil
}
