package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/harvester/internal/crawler"
	"github.com/alvmarrod/harvester/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const progressInterval = 10 * time.Second

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <config>",
		Short: "Harvest every index page and article described by a crawl document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0])
		},
	}
}

func (a *app) run(ctx context.Context, name string) error {
	cfg, err := a.loadConfig(name)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	tracker := metrics.NewTracker(runID)

	c, err := crawler.New(cfg,
		crawler.WithLogger(a.log),
		crawler.WithTracker(tracker),
		crawler.WithRunID(runID),
		crawler.WithProgress(func(current, total int, msg string) {
			a.log.WithFields(logrus.Fields{"current": current, "total": total}).Debug(msg)
		}),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-sigChan:
			a.log.Infof("Received signal: %v, stopping after the current request", sig)
			c.Stop()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigChan:
			a.log.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
			a.writeMetrics(tracker, "forced_exit")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.log.Info(tracker.LogProgress())
			case <-ctx.Done():
				return
			}
		}
	}()

	res, runErr := c.Run(ctx)
	cancel()
	wg.Wait()

	a.log.Info("Final stats: " + tracker.LogProgress())

	if res != nil {
		a.recordRun(cfg.Name, "run", res)
		a.writeMetrics(tracker, res.State.String())
		for _, file := range res.Files {
			a.log.WithField("file", file).Info("Output file")
		}
	}
	return runErr
}

func (a *app) writeMetrics(tracker *metrics.Tracker, reason string) {
	path := a.settings.MetricsPath
	if path == "" {
		return
	}
	if err := tracker.WriteToFile(path, reason); err != nil {
		a.log.Errorf("Failed to write metrics: %v", err)
		return
	}
	a.log.Infof("Metrics written to %s", path)
}
