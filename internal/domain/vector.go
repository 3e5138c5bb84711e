package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// Metadata keys written by the system onto every stored vector. Caller
// supplied metadata never overrides these.
const (
	MetaKind            = "kind"
	MetaAgentID         = "agent_id"
	MetaUserID          = "user_id"
	MetaContent         = "content"
	MetaTimestamp       = "timestamp"
	MetaKnowledgeBaseID = "knowledge_base_id"
	MetaDocumentID      = "document_id"
	MetaChunkIndex      = "chunk_index"
	MetaFilename        = "filename"
)

// Vector kinds stored in the shared index.
const (
	KindMemory    = "memory"
	KindKnowledge = "knowledge"
)

// VectorRecord is one embedding plus its metadata as stored in the index.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorMatch is a single similarity hit. Score is cosine similarity,
// higher is closer.
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// VectorFilter is an exact-match metadata filter. Every key must match.
type VectorFilter map[string]string

// Validate rejects filters that would scan the whole index.
func (f VectorFilter) Validate() error {
	if len(f) == 0 {
		return ErrUnscopedVectorOperation
	}
	for k, v := range f {
		if k == "" || v == "" {
			return NewDomainErrorWithCause(ErrCodeValidation, ErrUnscopedVectorOperation.Message,
				fmt.Errorf("filter key %q has empty name or value", k))
		}
	}
	return nil
}

// Matches reports whether metadata satisfies every key of the filter.
func (f VectorFilter) Matches(metadata map[string]any) bool {
	for k, want := range f {
		got, ok := metadata[k]
		if !ok || MetadataValueString(got) != want {
			return false
		}
	}
	return true
}

// Keys returns the filter keys in sorted order.
func (f VectorFilter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateVectorRecord validates a VectorRecord against the expected
// dimensionality. dims <= 0 skips the length check.
func ValidateVectorRecord(r *VectorRecord, dims int) error {
	if r == nil {
		return fmt.Errorf("vector record cannot be nil")
	}
	if r.ID == "" {
		return fmt.Errorf("vector record ID is required")
	}
	if len(r.Vector) == 0 {
		return fmt.Errorf("vector record Vector is required")
	}
	if dims > 0 && len(r.Vector) != dims {
		return fmt.Errorf("vector record Vector has %d dimensions, expected %d", len(r.Vector), dims)
	}
	if len(r.Metadata) == 0 {
		return fmt.Errorf("vector record Metadata is required")
	}
	return nil
}

// MetadataValueString renders a metadata value the way filters compare it.
func MetadataValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// MetadataString returns metadata[key] as a string, or "".
func MetadataString(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	return MetadataValueString(v)
}

// MetadataInt returns metadata[key] as an int. JSON round trips turn ints
// into float64, so both are accepted.
func MetadataInt(metadata map[string]any, key string) int {
	switch t := metadata[key].(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case float32:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}
