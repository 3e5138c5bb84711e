package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  VectorFilter
		wantErr bool
	}{
		{name: "nil filter", filter: nil, wantErr: true},
		{name: "empty filter", filter: VectorFilter{}, wantErr: true},
		{name: "empty value", filter: VectorFilter{MetaAgentID: ""}, wantErr: true},
		{name: "scoped", filter: VectorFilter{MetaAgentID: "a1", MetaUserID: "u1"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnscopedVectorOperation))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVectorFilterMatches(t *testing.T) {
	metadata := map[string]any{
		MetaKind:       KindMemory,
		MetaAgentID:    "a1",
		MetaUserID:     "u1",
		MetaChunkIndex: float64(3),
	}

	assert.True(t, VectorFilter{MetaAgentID: "a1"}.Matches(metadata))
	assert.True(t, VectorFilter{MetaAgentID: "a1", MetaUserID: "u1", MetaKind: KindMemory}.Matches(metadata))
	assert.True(t, VectorFilter{MetaChunkIndex: "3"}.Matches(metadata))
	assert.False(t, VectorFilter{MetaAgentID: "a2"}.Matches(metadata))
	assert.False(t, VectorFilter{MetaKnowledgeBaseID: "kb1"}.Matches(metadata))
}

func TestVectorFilterKeysSorted(t *testing.T) {
	f := VectorFilter{MetaUserID: "u", MetaAgentID: "a", MetaKind: "memory"}
	assert.Equal(t, []string{MetaAgentID, MetaKind, MetaUserID}, f.Keys())
}

func TestValidateVectorRecord(t *testing.T) {
	rec := &VectorRecord{ID: "r1", Vector: []float32{0.1, 0.2}, Metadata: map[string]any{MetaKind: KindMemory}}
	require.NoError(t, ValidateVectorRecord(rec, 2))
	require.NoError(t, ValidateVectorRecord(rec, 0))

	err := ValidateVectorRecord(rec, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3")

	require.Error(t, ValidateVectorRecord(&VectorRecord{Vector: []float32{1}}, 0))
	require.Error(t, ValidateVectorRecord(&VectorRecord{ID: "r1", Metadata: map[string]any{"k": "v"}}, 0))
	require.Error(t, ValidateVectorRecord(&VectorRecord{ID: "r1", Vector: []float32{1}}, 0))
	require.Error(t, ValidateVectorRecord(nil, 0))
}

func TestMetadataHelpers(t *testing.T) {
	md := map[string]any{"s": "x", "f": float64(7), "i": 4, "b": true, "n": nil}

	assert.Equal(t, "x", MetadataString(md, "s"))
	assert.Equal(t, "7", MetadataString(md, "f"))
	assert.Equal(t, "true", MetadataString(md, "b"))
	assert.Equal(t, "", MetadataString(md, "n"))
	assert.Equal(t, "", MetadataString(md, "missing"))
	assert.Equal(t, 7, MetadataInt(md, "f"))
	assert.Equal(t, 4, MetadataInt(md, "i"))
	assert.Equal(t, 0, MetadataInt(md, "missing"))
}
