package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"

	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/internal/uploads"
)

// DocumentService stores candidate documents and their metadata.
type DocumentService struct {
	db      *gorm.DB
	uploads *uploads.UploadService
}

func NewDocumentService(db *gorm.DB, uploadService *uploads.UploadService) *DocumentService {
	return &DocumentService{db: db, uploads: uploadService}
}

// Upload writes the file to storage and records it against the candidate.
// The stored file is removed again if the record cannot be written.
func (s *DocumentService) Upload(ctx context.Context, candidateID uint, fileName string, content io.Reader, mimeType string) (*portalmodel.Document, error) {
	if _, err := findCandidate(ctx, s.db, candidateID); err != nil {
		return nil, err
	}

	stored, err := s.uploads.Upload(ctx, fileName, content, mimeType)
	if err != nil {
		return nil, err
	}

	doc := &portalmodel.Document{
		CandidateID: candidateID,
		StorageRef:  stored.Key,
		FileName:    stored.Name,
		FileType:    stored.MimeType,
		FileSize:    stored.Size,
		URL:         stored.URL,
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if delErr := s.uploads.Delete(ctx, stored.Key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned document", "key", stored.Key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	slog.InfoContext(ctx, "document uploaded", "candidate_id", candidateID, "document_id", doc.ID, "key", doc.StorageRef)
	return doc, nil
}

// ListForCandidate returns a candidate's documents, newest first.
func (s *DocumentService) ListForCandidate(ctx context.Context, candidateID uint) ([]portalmodel.Document, error) {
	var docs []portalmodel.Document
	err := s.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Order("upload_time DESC, id DESC").Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Get returns the document stored under key.
func (s *DocumentService) Get(ctx context.Context, key string) (*portalmodel.Document, error) {
	var doc portalmodel.Document
	if err := s.db.WithContext(ctx).Where("storage_ref = ?", key).First(&doc).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}
