package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]models.Document, error)
	Delete(ctx context.Context, ownerUserID, id string) (string, error)
}

type documentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// UploadDocumentRequest carries upload metadata; the bytes arrive as a
// separate reader so misdeclared sizes are caught during the copy.
type UploadDocumentRequest struct {
	Kind      models.DocumentKind
	FileName  string
	MimeType  string
	SizeBytes int64
}

// DocumentServiceConfig bounds accepted uploads.
type DocumentServiceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DocumentDownload aggregates resolved download data.
type DocumentDownload struct {
	File     *os.File
	Document *models.Document
}

// SignedDocumentURL pairs a short-lived token with its expiry.
type SignedDocumentURL struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService stores uploaded files on local disk and hands out
// short-lived signed download tokens. Only the owner can list, sign, or
// delete a document.
type DocumentService struct {
	repo    documentRepository
	storage documentStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     DocumentServiceConfig
}

// NewDocumentService constructs the document service.
func NewDocumentService(repo documentRepository, store documentStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	return &DocumentService{
		repo:    repo,
		storage: store,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Upload validates and persists one file plus its metadata row.
func (s *DocumentService) Upload(ctx context.Context, ownerUserID string, req UploadDocumentRequest, body io.Reader) (*models.Document, error) {
	switch req.Kind {
	case models.DocumentKindCertification, models.DocumentKindResume, models.DocumentKindEvaluationReport:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported document kind")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}
	if req.SizeBytes > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(req.MimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type is not allowed")
	}

	doc := &models.Document{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Kind:        req.Kind,
		FileName:    filepath.Base(req.FileName),
		MimeType:    req.MimeType,
		SizeBytes:   req.SizeBytes,
	}

	// LimitReader with one extra byte catches bodies larger than declared.
	limited := io.LimitReader(body, s.cfg.MaxFileSizeBytes+1)
	stored := fmt.Sprintf("%s/%s%s", ownerUserID, doc.ID, filepath.Ext(doc.FileName))
	relPath, err := s.storage.SaveStream(stored, limited)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	doc.StoragePath = relPath

	if err := s.repo.Create(ctx, doc); err != nil {
		if rmErr := s.storage.Delete(relPath); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", relPath), zap.Error(rmErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document metadata")
	}
	return doc, nil
}

// List returns the caller's documents, newest first.
func (s *DocumentService) List(ctx context.Context, ownerUserID string) ([]models.Document, error) {
	docs, err := s.repo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// SignDownload issues a short-lived download token for an owned document.
// Admins may sign any document.
func (s *DocumentService) SignDownload(ctx context.Context, actorID string, role models.UserRole, documentID string) (*SignedDocumentURL, error) {
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if role != models.RoleAdmin && doc.OwnerUserID != actorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &SignedDocumentURL{Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *DocumentService) ResolveDownload(ctx context.Context, token string) (*DocumentDownload, error) {
	documentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.StoragePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return &DocumentDownload{File: file, Document: doc}, nil
}

// Delete removes a document row and its bytes.
func (s *DocumentService) Delete(ctx context.Context, ownerUserID, documentID string) error {
	path, err := s.repo.Delete(ctx, ownerUserID, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn("failed to remove stored document", zap.String("path", path), zap.Error(err))
	}
	return nil
}

func (s *DocumentService) mimeAllowed(mime string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(strings.TrimSpace(allowed), mime) {
			return true
		}
	}
	return false
}
