package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIngestionJob(t *testing.T) {
	now := time.Now()
	job := NewIngestionJob("job1", "d1", IngestionJobStatusPending, 0, "", now, nil)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "d1", job.DocumentID)
	assert.Equal(t, IngestionJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Equal(t, "", job.Error)
	assert.Equal(t, now, job.CreatedAt)
	assert.Nil(t, job.ProcessedAt)
}

func TestIngestionJobStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   IngestionJobStatus
		expected string
	}{
		{"Pending", IngestionJobStatusPending, "pending"},
		{"Processing", IngestionJobStatusProcessing, "processing"},
		{"Completed", IngestionJobStatusCompleted, "completed"},
		{"Failed", IngestionJobStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestValidateIngestionJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *IngestionJob
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid job",
			job:     &IngestionJob{ID: "job1", DocumentID: "d1", Status: IngestionJobStatusPending, CreatedAt: now},
			wantErr: false,
		},
		{
			name:    "nil job",
			job:     nil,
			wantErr: true,
			errMsg:  "nil",
		},
		{
			name:    "missing ID",
			job:     &IngestionJob{DocumentID: "d1", Status: IngestionJobStatusPending},
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing DocumentID",
			job:     &IngestionJob{ID: "job1", Status: IngestionJobStatusPending},
			wantErr: true,
			errMsg:  "DocumentID",
		},
		{
			name:    "invalid status",
			job:     &IngestionJob{ID: "job1", DocumentID: "d1", Status: "queued"},
			wantErr: true,
			errMsg:  "status",
		},
		{
			name:    "negative retries",
			job:     &IngestionJob{ID: "job1", DocumentID: "d1", Status: IngestionJobStatusFailed, Retries: -1},
			wantErr: true,
			errMsg:  "Retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestionJob(tt.job)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateIngestionJob_StatusSentinel(t *testing.T) {
	err := ValidateIngestionJob(&IngestionJob{ID: "job1", DocumentID: "d1", Status: "queued"})
	assert.ErrorIs(t, err, ErrInvalidIngestionStatus)
}
