package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/logging"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	Extract(content []byte, ext string) (string, error)
}

// IngestionService turns a stored document into indexed knowledge chunks.
// It is driven by the ingestion worker.
type IngestionService struct {
	docs      DocumentRepository
	blobs     BlobStore
	extractor TextExtractor
	embedder  EmbeddingClient
	index     VectorIndex
	chunkCfg  ChunkConfig
}

func NewIngestionService(
	docs DocumentRepository,
	blobs BlobStore,
	extractor TextExtractor,
	embedder EmbeddingClient,
	index VectorIndex,
	chunkCfg ChunkConfig,
) *IngestionService {
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestionService{
		docs:      docs,
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		chunkCfg:  chunkCfg,
	}
}

// ProcessDocument extracts, chunks and embeds the document, then replaces
// its chunks in the index. Chunk ids are derived from the document id and
// position, so a retry overwrites what an earlier attempt wrote.
func (s *IngestionService) ProcessDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest_document",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""); err != nil {
		return err
	}

	count, err := s.ingest(ctx, doc)
	if err != nil {
		span.SetError(err)
		if uerr := s.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0, err.Error()); uerr != nil {
			logging.From(ctx).Warn("failed to mark document failed",
				zap.String("document_id", doc.ID),
				zap.Error(uerr),
			)
		}
		return err
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusReady, count, ""); err != nil {
		return err
	}

	logging.From(ctx).Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("knowledge_base_id", doc.KnowledgeBaseID),
		zap.Int("chunks", count),
	)
	return nil
}

func (s *IngestionService) ingest(ctx context.Context, doc *domain.Document) (int, error) {
	rc, err := s.blobs.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read document: %w", err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to read document: %w", err)
	}

	telemetry.AddBreadcrumb(ctx, "ingestion", fmt.Sprintf("extract %s (%d bytes)", doc.Extension(), len(content)))
	text, err := s.extractor.Extract(content, doc.Extension())
	if err != nil {
		return 0, fmt.Errorf("failed to extract text: %w", err)
	}

	pieces := chunkText(text, s.chunkCfg)
	telemetry.AddBreadcrumb(ctx, "ingestion", fmt.Sprintf("chunked into %d pieces", len(pieces)))
	if len(pieces) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	telemetry.AddBreadcrumb(ctx, "ingestion", fmt.Sprintf("embed %d chunks", len(pieces)))

	chunks := make([]domain.KnowledgeChunk, 0, len(pieces))
	for i, piece := range pieces {
		vec, err := embed(ctx, s.embedder, piece)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		chunk := domain.KnowledgeChunk{
			ID:              domain.KnowledgeChunkID(doc.ID, i),
			DocumentID:      doc.ID,
			KnowledgeBaseID: doc.KnowledgeBaseID,
			Filename:        doc.Filename,
			ChunkIndex:      i,
			Content:         piece,
			Embedding:       vec,
		}
		if err := domain.ValidateKnowledgeChunk(&chunk); err != nil {
			return 0, err
		}
		chunks = append(chunks, chunk)
	}

	// Earlier attempts may have written more chunks than this one.
	if _, err := s.index.DeleteMany(ctx, domain.DocumentChunksFilter(doc.KnowledgeBaseID, doc.ID)); err != nil {
		return 0, indexErr("failed to remove previous chunks", err)
	}
	for _, c := range chunks {
		err := s.index.Upsert(ctx, domain.VectorRecord{
			ID:       c.ID,
			Vector:   c.Embedding,
			Metadata: c.Metadata(),
		})
		if err != nil {
			return 0, indexErr("failed to index chunk", err)
		}
	}

	return len(chunks), nil
}
