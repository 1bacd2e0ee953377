package model

import "time"

// HistoryExport is the top-level JSON structure for practice history export.
type HistoryExport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Stats       UserStats        `json:"stats"`
	Records     []PracticeRecord `json:"records"`
}
