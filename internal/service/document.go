package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/logging"
	"github.com/cloo-solutions/voicerag/internal/pagination"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

// BlobStore holds the raw bytes of uploaded documents.
type BlobStore interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
}

type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error
}

type IngestionJobRepository interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
}

// DocumentTypeChecker reports whether a file extension can be ingested.
type DocumentTypeChecker interface {
	Supported(ext string) bool
}

// DocumentService accepts uploads into a knowledge base and queues them for
// ingestion.
type DocumentService struct {
	docs     DocumentRepository
	jobs     IngestionJobRepository
	blobs    BlobStore
	types    DocumentTypeChecker
	txRunner TxRunner
	uuidGen  UUIDGenerator
	maxBytes int64
}

func NewDocumentService(
	docs DocumentRepository,
	jobs IngestionJobRepository,
	blobs BlobStore,
	types DocumentTypeChecker,
	txRunner TxRunner,
	maxBytes int64,
) *DocumentService {
	return NewDocumentServiceWithUUIDGen(docs, jobs, blobs, types, txRunner, maxBytes, &DefaultUUIDGenerator{})
}

func NewDocumentServiceWithUUIDGen(
	docs DocumentRepository,
	jobs IngestionJobRepository,
	blobs BlobStore,
	types DocumentTypeChecker,
	txRunner TxRunner,
	maxBytes int64,
	uuidGen UUIDGenerator,
) *DocumentService {
	return &DocumentService{
		docs:     docs,
		jobs:     jobs,
		blobs:    blobs,
		types:    types,
		txRunner: txRunner,
		uuidGen:  uuidGen,
		maxBytes: maxBytes,
	}
}

// UploadInput represents an uploaded file
type UploadInput struct {
	UserID          string
	KnowledgeBaseID string
	Filename        string
	ContentType     string
	Content         []byte
}

// Upload stores the file, records the document and queues its ingestion
// job. The document and job are written in one transaction when a
// TxRunner is configured.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		UserID:          input.UserID,
		KnowledgeBaseID: input.KnowledgeBaseID,
		Operation:       "upload_document",
	})
	defer span.End()

	filename := filepath.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "filename is required", domain.ErrMissingRequiredField)
	}
	if len(input.Content) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	if s.maxBytes > 0 && int64(len(input.Content)) > s.maxBytes {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document exceeds maximum size")
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), input.KnowledgeBaseID, input.UserID, filename, input.ContentType, int64(len(input.Content)), now)
	if s.types != nil && !s.types.Supported(doc.Extension()) {
		return nil, domain.ErrUnsupportedDocumentType
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	if err := s.blobs.PutObject(ctx, doc.StorageKey, doc.ContentType, bytes.NewReader(input.Content), doc.SizeBytes); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
	}

	job := domain.NewIngestionJob(s.uuidGen.NewString(), doc.ID, domain.IngestionJobStatusPending, 0, "", now, nil)

	var err error
	if s.txRunner != nil {
		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return err
			}
			return repos.IngestionJobs().Create(ctx, job)
		})
	} else {
		if err = s.docs.Create(ctx, doc); err == nil {
			err = s.jobs.Create(ctx, job)
		}
	}
	if err != nil {
		span.SetError(err)
		if delErr := s.blobs.DeleteObject(ctx, doc.StorageKey); delErr != nil {
			logging.From(ctx).Warn("failed to remove orphaned upload",
				zap.String("storage_key", doc.StorageKey),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	logging.From(ctx).Info("document queued for ingestion",
		zap.String("document_id", doc.ID),
		zap.String("knowledge_base_id", doc.KnowledgeBaseID),
		zap.Int64("size_bytes", doc.SizeBytes),
	)
	return doc, nil
}

// AddText stores raw text as a markdown document.
func (s *DocumentService) AddText(ctx context.Context, userID, knowledgeBaseID, title, text string) (*domain.Document, error) {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "note"
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != ".md" && ext != ".txt" {
		name += ".md"
	}
	return s.Upload(ctx, UploadInput{
		UserID:          userID,
		KnowledgeBaseID: knowledgeBaseID,
		Filename:        name,
		ContentType:     "text/markdown",
		Content:         []byte(text),
	})
}

func (s *DocumentService) Get(ctx context.Context, knowledgeBaseID, documentID string) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.KnowledgeBaseID != knowledgeBaseID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, knowledgeBaseID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.docs.ListByKnowledgeBase(ctx, knowledgeBaseID, c, limit)
}
