package models

// HistoryEntry is one persisted past successful scan. Entries are immutable
// after creation; they leave the log only via clear or tail eviction.
type HistoryEntry struct {
	ID              string         `json:"id"`
	Timestamp       int64          `json:"timestamp"` // epoch milliseconds
	Result          AnalysisResult `json:"result"`
	ImagePreviewURL string         `json:"image_preview_url,omitempty"`
}

// HistoryLog is the newest-first bounded log of past scans
type HistoryLog []HistoryEntry
