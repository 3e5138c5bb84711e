package domain

import (
	"fmt"
	"strconv"
)

// KnowledgeChunk is a chunked segment of a document, embedded and stored in
// the vector index under its knowledge base.
type KnowledgeChunk struct {
	ID              string
	DocumentID      string
	KnowledgeBaseID string
	Filename        string
	ChunkIndex      int
	Content         string
	Embedding       []float32
}

// KnowledgeChunkID is the stable vector id of a chunk, so re-ingesting a
// document overwrites rather than duplicates.
func KnowledgeChunkID(documentID string, chunkIndex int) string {
	return documentID + ":" + strconv.Itoa(chunkIndex)
}

// KnowledgeFilter scopes a vector operation to one knowledge base.
func KnowledgeFilter(knowledgeBaseID string) VectorFilter {
	return VectorFilter{
		MetaKind:            KindKnowledge,
		MetaKnowledgeBaseID: knowledgeBaseID,
	}
}

// DocumentChunksFilter scopes a vector operation to one document's chunks.
func DocumentChunksFilter(knowledgeBaseID, documentID string) VectorFilter {
	f := KnowledgeFilter(knowledgeBaseID)
	f[MetaDocumentID] = documentID
	return f
}

// Metadata returns the stored metadata for the chunk.
func (c *KnowledgeChunk) Metadata() map[string]any {
	return map[string]any{
		MetaKind:            KindKnowledge,
		MetaKnowledgeBaseID: c.KnowledgeBaseID,
		MetaDocumentID:      c.DocumentID,
		MetaChunkIndex:      c.ChunkIndex,
		MetaFilename:        c.Filename,
		MetaContent:         c.Content,
	}
}

// ValidateKnowledgeChunk validates a KnowledgeChunk before indexing.
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}
	if c.DocumentID == "" {
		return fmt.Errorf("knowledge chunk DocumentID is required")
	}
	if c.KnowledgeBaseID == "" {
		return fmt.Errorf("knowledge chunk KnowledgeBaseID is required")
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("knowledge chunk ChunkIndex cannot be negative")
	}
	if c.Content == "" {
		return fmt.Errorf("knowledge chunk Content is required")
	}
	return nil
}

// KnowledgeResult is one retrieved chunk in a context-only query.
type KnowledgeResult struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Score      float32        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// SourceRef cites a chunk used to ground a generated answer.
type SourceRef struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Source converts a retrieved result into a citation.
func (r KnowledgeResult) Source() SourceRef {
	return SourceRef{
		ChunkID:    r.ChunkID,
		DocumentID: r.DocumentID,
		Filename:   MetadataString(r.Metadata, MetaFilename),
		ChunkIndex: r.ChunkIndex,
		Score:      r.Score,
	}
}

// KnowledgeResultFromMatch projects an index match onto a KnowledgeResult.
func KnowledgeResultFromMatch(m VectorMatch) KnowledgeResult {
	return KnowledgeResult{
		ChunkID:    m.ID,
		DocumentID: MetadataString(m.Metadata, MetaDocumentID),
		ChunkIndex: MetadataInt(m.Metadata, MetaChunkIndex),
		Content:    MetadataString(m.Metadata, MetaContent),
		Score:      m.Score,
		Metadata:   m.Metadata,
	}
}

// RAGResponse is the result of grounded generation.
type RAGResponse struct {
	Response string      `json:"response"`
	Sources  []SourceRef `json:"sources"`
}
