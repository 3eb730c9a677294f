// Package crawler drives a harvest: it pages through an index, collects and
// deduplicates article links, then fetches, parses and persists each article.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/alvmarrod/harvester/internal/config"
	"github.com/alvmarrod/harvester/internal/fetch"
	"github.com/alvmarrod/harvester/internal/metrics"
	"github.com/alvmarrod/harvester/internal/output"
	"github.com/alvmarrod/harvester/internal/parser"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMissingURLs is returned when the one-page URL or the page template
	// is not configured.
	ErrMissingURLs = errors.New("missing index page urls")
	// ErrNoLinks is returned when pagination yields no usable link.
	ErrNoLinks = errors.New("no links found")
	// ErrRunning is returned when a run is started on a busy Crawler.
	ErrRunning = errors.New("crawler is already running")
)

// ProgressFunc receives progress updates. A total of zero means the total is
// unknown.
type ProgressFunc func(current, total int, message string)

// RecordWriter persists article records.
type RecordWriter interface {
	Write(title, content, ts string) (string, error)
	Files() []string
	Close() error
}

// WriterFactory opens the sink for one run.
type WriterFactory func(cfg config.OutputConfig, log logrus.FieldLogger) (RecordWriter, error)

// Result summarizes a finished run.
type Result struct {
	RunID           string
	State           State
	Pages           int
	LinksFound      int
	LinksUnique     int
	ArticlesFetched int
	ArticlesWritten int
	ArticlesSkipped int
	ArticlesFailed  int
	WriteErrors     int
	Files           []string
	Error           string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithFetcher replaces the HTTP transport.
func WithFetcher(f fetch.Fetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithLogger sets the log sink.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Crawler) {
		if log != nil {
			c.log = log
		}
	}
}

// WithProgress sets the progress sink.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Crawler) { c.progress = fn }
}

// WithTracker records run counters in t.
func WithTracker(t *metrics.Tracker) Option {
	return func(c *Crawler) { c.tracker = t }
}

// WithWriterFactory replaces the JSONL sink.
func WithWriterFactory(f WriterFactory) Option {
	return func(c *Crawler) { c.newWriter = f }
}

// WithSleeper replaces the delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(c *Crawler) { c.sleep = s }
}

// WithRand sets the random source used for delays.
func WithRand(r *rand.Rand) Option {
	return func(c *Crawler) { c.rng = r }
}

// WithRunID fixes the id reported for every run instead of a fresh uuid.
func WithRunID(id string) Option {
	return func(c *Crawler) { c.runID = id }
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// Crawler runs harvests for one crawl document. A Crawler runs one harvest at
// a time; Stop, IsStopped and State are safe from any goroutine.
type Crawler struct {
	cfg       *config.CrawlConfig
	fetcher   fetch.Fetcher
	log       logrus.FieldLogger
	progress  ProgressFunc
	tracker   *metrics.Tracker
	newWriter WriterFactory
	sleep     Sleeper
	rng       *rand.Rand
	runID     string
	now       func() time.Time

	stopRequested atomic.Bool
	running       atomic.Bool
	state         atomic.Int32
}

// New validates cfg and returns a Crawler working on a private copy of it.
func New(cfg *config.CrawlConfig, opts ...Option) (*Crawler, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Crawler{
		cfg:       cfg.Clone(),
		log:       discard,
		newWriter: openJSONL,
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = fetch.NewCollyFetcher(fetch.Options{
			Timeout: c.cfg.RequestTimeout(),
			Header:  c.cfg.Header(),
			Logger:  c.log,
		})
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c, nil
}

func openJSONL(cfg config.OutputConfig, log logrus.FieldLogger) (RecordWriter, error) {
	return output.NewWriter(output.Options{
		BasePath:   cfg.BasePath,
		Prefix:     cfg.FilePrefix,
		MaxEntries: cfg.MaxEntries,
	}, log)
}

// Config returns a copy of the crawl document.
func (c *Crawler) Config() *config.CrawlConfig {
	return c.cfg.Clone()
}

// Stop asks the current or next run to end at its next checkpoint. The
// request is sticky: once stopped, later runs stop immediately.
func (c *Crawler) Stop() {
	if c.stopRequested.CompareAndSwap(false, true) {
		c.log.WithField("config", c.cfg.Name).Info("Stop requested")
	}
}

// IsStopped reports whether Stop has been called.
func (c *Crawler) IsStopped() bool {
	return c.stopRequested.Load()
}

// State returns the lifecycle position of the current or last run.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
}

// Run performs a full harvest. A stopped run returns its partial result with
// a nil error; a failed run returns the result and the cause.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}
	defer c.running.Store(false)

	r := c.newRun(ctx, plan{
		mode:     "run",
		persist:  c.cfg.UseJSONL,
		lastPage: c.cfg.StopPage,
	})
	return r.execute()
}

type plan struct {
	mode     string
	persist  bool
	lastPage int
	maxLinks int
	delayCap time.Duration
	report   *TestReport
}

// run is the state of one harvest.
type run struct {
	c       *Crawler
	ctx     context.Context
	plan    plan
	res     *Result
	log     logrus.FieldLogger
	tracker *metrics.Tracker
	writer  RecordWriter
}

func (c *Crawler) newRun(ctx context.Context, p plan) *run {
	id := c.runID
	if id == "" {
		id = uuid.NewString()
	}

	tracker := c.tracker
	if tracker == nil {
		tracker = metrics.NewTracker(id)
	}

	return &run{
		c:    c,
		ctx:  ctx,
		plan: p,
		res: &Result{
			RunID:     id,
			State:     Idle,
			StartedAt: c.now(),
		},
		log: c.log.WithFields(logrus.Fields{
			"run_id": id,
			"config": c.cfg.Name,
		}),
		tracker: tracker,
	}
}

func (r *run) execute() (*Result, error) {
	c := r.c
	c.setState(Idle)

	defer func() {
		// A run unwinding without an end state, such as on a panic, failed.
		if !r.res.State.Terminal() {
			r.res.State = Failed
		}
		r.res.FinishedAt = c.now()
		c.setState(r.res.State)
		r.log.WithFields(logrus.Fields{
			"state":   r.res.State.String(),
			"written": r.res.ArticlesWritten,
		}).Info("Run finished")
	}()

	if err := c.cfg.RequireURLs(); err != nil {
		return r.fail(fmt.Errorf("%w: %v", ErrMissingURLs, err))
	}

	if r.plan.persist {
		w, err := c.newWriter(c.cfg.Output, r.log)
		if err != nil {
			return r.fail(fmt.Errorf("failed to open output: %w", err))
		}
		r.writer = w
		defer func() {
			if cerr := w.Close(); cerr != nil {
				r.log.WithError(cerr).Warn("Failed to close output")
			}
			r.res.Files = w.Files()
		}()
	}

	r.log.WithFields(logrus.Fields{
		"mode":  r.plan.mode,
		"start": c.cfg.StartPage,
		"stop":  r.plan.lastPage,
	}).Info("Run started")

	c.setState(Collecting)
	links, stopped := r.collect()
	if stopped {
		return r.stop()
	}

	unique := links.Items()
	r.res.LinksUnique = links.Size()
	r.tracker.LinksCollected(r.res.LinksFound, r.res.LinksUnique)
	r.log.WithFields(logrus.Fields{
		"found":  r.res.LinksFound,
		"unique": r.res.LinksUnique,
	}).Info("Link collection finished")

	if len(unique) == 0 {
		return r.fail(ErrNoLinks)
	}
	if r.plan.maxLinks > 0 && len(unique) > r.plan.maxLinks {
		unique = unique[:r.plan.maxLinks]
	}

	if c.shouldStop(r.ctx) {
		return r.stop()
	}

	c.setState(Fetching)
	if stopped := r.fetchArticles(unique); stopped {
		return r.stop()
	}

	r.res.State = Completed
	return r.res, nil
}

func (r *run) fail(err error) (*Result, error) {
	r.res.State = Failed
	r.res.Error = err.Error()
	r.log.WithError(err).Error("Run failed")
	r.plan.report.addError(err.Error())
	return r.res, err
}

func (r *run) stop() (*Result, error) {
	r.res.State = Stopped
	r.log.Info("Run stopped")
	if r.plan.report != nil {
		r.plan.report.Stopped = true
	}
	return r.res, nil
}

func (c *Crawler) shouldStop(ctx context.Context) bool {
	return c.stopRequested.Load() || ctx.Err() != nil
}

// collect pages through the index into an ordered set of distinct links. It
// reports true when a stop was observed.
func (r *run) collect() (*LinkSet, bool) {
	c := r.c
	cfg := c.cfg

	total := 0
	if r.plan.lastPage != config.MaxPage {
		total = r.plan.lastPage - cfg.StartPage + 1
	}

	base := cfg.BaseURL
	links := NewLinkSet()

	for page := cfg.StartPage; page <= r.plan.lastPage; page++ {
		if c.shouldStop(r.ctx) {
			return links, true
		}

		pageURL := cfg.PageURL(page)
		log := r.log.WithFields(logrus.Fields{
			"phase": "collect",
			"page":  page,
			"url":   pageURL,
		})
		c.report(page-cfg.StartPage+1, total, fmt.Sprintf("Collecting links from page %d", page))

		fetched, err := c.fetcher.Fetch(r.ctx, pageURL)
		if err != nil {
			// A failed index fetch marks the last page.
			log.WithError(err).Info("Index page unavailable, pagination ended")
			r.tracker.PageFailed()
			r.pause()
			break
		}
		r.res.Pages++
		r.tracker.PageFetched(fetched.Elapsed)

		doc, err := parser.NewDocument(fetched.Body)
		if err != nil {
			log.WithError(err).Warn("Skipping unparseable index page")
			r.plan.report.addError(fmt.Sprintf("page %d: %v", page, err))
			r.pause()
			continue
		}

		resolveBase := base
		if resolveBase == "" {
			resolveBase = fetched.URL
		}
		found := c.usable(parser.ParseLinkList(doc, resolveBase, cfg.List))
		r.res.LinksFound += len(found)
		added := links.PushAll(found)
		r.plan.report.addLinks(page, found)

		if len(found) == 0 {
			log.Warn("No links found on index page")
		} else {
			log.WithFields(logrus.Fields{
				"links":  len(found),
				"new":    added,
				"unique": links.Size(),
			}).Info("Collected links")
		}

		r.pause()
	}

	return links, false
}

// usable drops links without a URL unless they are configured to be kept.
func (c *Crawler) usable(links []parser.LinkItem) []parser.LinkItem {
	if c.cfg.KeepEmptyLinks {
		return links
	}
	kept := links[:0]
	for _, link := range links {
		if link.URL != "" {
			kept = append(kept, link)
		}
	}
	return kept
}

// fetchArticles fetches, parses and persists each link. It reports true when
// a stop was observed.
func (r *run) fetchArticles(links []parser.LinkItem) bool {
	c := r.c

	for i, link := range links {
		if c.shouldStop(r.ctx) {
			return true
		}

		log := r.log.WithFields(logrus.Fields{
			"phase": "fetch",
			"url":   link.URL,
			"host":  parser.Hostname(link.URL),
		})
		c.report(i+1, len(links), "Fetching "+link.Title)

		if r.plan.report != nil {
			r.plan.report.ArticlesTested++
		}

		fetched, err := c.fetcher.Fetch(r.ctx, link.URL)
		if err != nil {
			log.WithError(err).Warn("Failed to fetch article")
			r.res.ArticlesFailed++
			r.tracker.ArticleFailed()
			r.plan.report.addError(fmt.Sprintf("fetch %s: %v", link.URL, err))
			r.pause()
			continue
		}
		r.res.ArticlesFetched++
		r.tracker.ArticleFetched(fetched.Elapsed)

		rec := r.parse(fetched, link)
		if rec.Error != "" {
			log.WithField("reason", rec.Error).Warn("Article not parsed as configured")
			r.plan.report.addError(fmt.Sprintf("parse %s: %s", link.URL, rec.Error))
		}

		if rec.Content == "" {
			log.Debug("Skipping article with no content")
			r.res.ArticlesSkipped++
			r.tracker.ArticleSkipped()
			r.pause()
			continue
		}

		// The index page title wins over anything derived from the article.
		rec.Title = link.Title
		r.plan.report.addArticle(rec)
		r.persist(rec, log)
		r.pause()
	}
	return false
}

func (r *run) parse(fetched *fetch.Page, link parser.LinkItem) parser.ArticleRecord {
	doc, err := parser.NewDocument(fetched.Body)
	if err != nil {
		return parser.ArticleRecord{URL: link.URL, Error: err.Error()}
	}
	return parser.ParseArticle(doc, link.URL, r.c.cfg.Article, r.c.now())
}

func (r *run) persist(rec parser.ArticleRecord, log logrus.FieldLogger) {
	if r.writer == nil {
		return
	}

	path, err := r.writer.Write(rec.Title, rec.Content, rec.Time)
	if err != nil {
		log.WithField("phase", "persist").WithError(err).Error("Failed to write record")
		r.res.WriteErrors++
		r.tracker.WriteFailed()
		return
	}

	r.res.ArticlesWritten++
	r.tracker.ArticleWritten()
	log.WithFields(logrus.Fields{"phase": "persist", "file": path}).Debug("Record written")
}

// pause applies the random inter-request delay. A stop request does not cut
// it short; a cancelled context does.
func (r *run) pause() {
	lo, hi := r.c.cfg.Delays()
	d := randomDelay(r.c.rng, lo, hi, r.plan.delayCap)
	if d <= 0 {
		return
	}
	r.log.WithField("delay", d.String()).Debug("Waiting before next request")
	_ = r.c.sleep(r.ctx, d)
}

func (c *Crawler) report(current, total int, msg string) {
	if c.progress != nil {
		c.progress(current, total, msg)
	}
}
