package repositories

import (
	"fmt"

	"github.com/desertthunder/trackdl/internal/models"
)

// HistoryRecorder implements tasks.Recorder using DownloadRepository.
type HistoryRecorder struct {
	repo *DownloadRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *DownloadRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// RecordDownload stores d. Every delivery is recorded, repeated downloads of a track included.
func (h *HistoryRecorder) RecordDownload(d *models.Download) error {
	if err := h.repo.Create(d); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}
