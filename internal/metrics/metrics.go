package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of a run's counters. It is also the
// document written by WriteToFile.
type Snapshot struct {
	RunID             string    `json:"run_id,omitempty"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time,omitempty"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	LinksFound        int       `json:"links_found"`
	LinksUnique       int       `json:"links_unique"`
	ArticlesFetched   int       `json:"articles_fetched"`
	ArticlesFailed    int       `json:"articles_failed"`
	ArticlesWritten   int       `json:"articles_written"`
	ArticlesSkipped   int       `json:"articles_skipped"`
	WriteErrors       int       `json:"write_errors"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason,omitempty"`
}

// Tracker accumulates the counters of one run. All methods are safe for
// concurrent use.
type Tracker struct {
	mu               sync.Mutex
	data             Snapshot
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a tracker whose start time is now.
func NewTracker(runID string) *Tracker {
	return &Tracker{
		data: Snapshot{
			RunID:     runID,
			StartTime: time.Now(),
		},
	}
}

// PageFetched counts an index page fetch.
func (t *Tracker) PageFetched(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
	t.recordFetchTime(elapsed)
}

// PageFailed counts an index page that could not be fetched.
func (t *Tracker) PageFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// LinksCollected records the raw and deduplicated link totals.
func (t *Tracker) LinksCollected(found, unique int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksFound = found
	t.data.LinksUnique = unique
}

// ArticleFetched counts an article page fetch.
func (t *Tracker) ArticleFetched(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ArticlesFetched++
	t.recordFetchTime(elapsed)
}

// ArticleFailed counts an article page that could not be fetched.
func (t *Tracker) ArticleFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ArticlesFailed++
}

// ArticleWritten counts a persisted record.
func (t *Tracker) ArticleWritten() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ArticlesWritten++
}

// ArticleSkipped counts an article with no content.
func (t *Tracker) ArticleSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ArticlesSkipped++
}

// WriteFailed counts a record the writer rejected.
func (t *Tracker) WriteFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.WriteErrors++
}

func (t *Tracker) recordFetchTime(d time.Duration) {
	t.totalFetchTimeMs += d.Milliseconds()
	t.fetchCount++
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := t.data
	s.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		s.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return s
}

// Finish stamps the end time and reason and returns the final counters.
func (t *Tracker) Finish(reason string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.data.EndTime.IsZero() {
		t.data.EndTime = time.Now()
	}
	t.data.TerminationReason = reason
	return t.snapshotLocked()
}

// WriteToFile finishes the run with reason and exports the counters as JSON.
func (t *Tracker) WriteToFile(path, reason string) error {
	s := t.Finish(reason)

	jsonData, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// LogProgress renders the counters as a single status line.
func (t *Tracker) LogProgress() string {
	s := t.Snapshot()
	return fmt.Sprintf("Pages: %d fetched, %d failed | Links: %d found, %d unique | Articles: %d fetched, %d written, %d skipped, %d failed",
		s.PagesFetched,
		s.PagesFailed,
		s.LinksFound,
		s.LinksUnique,
		s.ArticlesFetched,
		s.ArticlesWritten,
		s.ArticlesSkipped,
		s.ArticlesFailed,
	)
}
