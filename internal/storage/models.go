package storage

import "time"

// Run is one harvest recorded in the ledger.
type Run struct {
	RunID           string
	ConfigName      string
	Mode            string
	State           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Pages           int
	LinksFound      int
	LinksUnique     int
	ArticlesFetched int
	ArticlesWritten int
	ArticlesSkipped int
	ArticlesFailed  int
	WriteErrors     int
	Error           string
	Files           []string
}
