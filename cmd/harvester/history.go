package main

import (
	"fmt"
	"time"

	"github.com/alvmarrod/harvester/internal/crawler"
	"github.com/alvmarrod/harvester/internal/storage"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openLedger()
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 1 {
				run, err := db.GetRun(args[0])
				if err != nil {
					return err
				}
				renderRun(a, run)
				return nil
			}

			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No runs recorded")
				return nil
			}
			renderRuns(a, runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list, 0 for all")
	return cmd
}

func (a *app) openLedger() (*storage.Storage, error) {
	if a.settings.DBPath == "" {
		return nil, fmt.Errorf("run ledger disabled: db_path is empty")
	}
	return storage.NewStorage(a.settings.DBPath)
}

// recordRun stores res in the ledger. Ledger failures never fail the run.
func (a *app) recordRun(configName, mode string, res *crawler.Result) {
	if a.settings.DBPath == "" {
		return
	}

	db, err := storage.NewStorage(a.settings.DBPath)
	if err != nil {
		a.log.Errorf("Failed to open run ledger: %v", err)
		return
	}
	defer db.Close()

	if err := db.RecordRun(ledgerRun(configName, mode, res)); err != nil {
		a.log.Errorf("Failed to record run: %v", err)
		return
	}
	a.log.WithField("run_id", res.RunID).Debug("Run recorded")
}

func ledgerRun(configName, mode string, res *crawler.Result) storage.Run {
	return storage.Run{
		RunID:           res.RunID,
		ConfigName:      configName,
		Mode:            mode,
		State:           res.State.String(),
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
		Pages:           res.Pages,
		LinksFound:      res.LinksFound,
		LinksUnique:     res.LinksUnique,
		ArticlesFetched: res.ArticlesFetched,
		ArticlesWritten: res.ArticlesWritten,
		ArticlesSkipped: res.ArticlesSkipped,
		ArticlesFailed:  res.ArticlesFailed,
		WriteErrors:     res.WriteErrors,
		Error:           res.Error,
		Files:           res.Files,
	}
}

func renderRuns(a *app, runs []*storage.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Config", "State", "Started", "Duration", "Pages", "Links", "Written", "Failed"})

	for _, run := range runs {
		t.AppendRow(table.Row{
			run.RunID,
			run.ConfigName,
			run.State,
			run.StartedAt.Local().Format(time.DateTime),
			duration(run),
			run.Pages,
			run.LinksUnique,
			run.ArticlesWritten,
			run.ArticlesFailed,
		})
	}
	t.Render()
}

func renderRun(a *app, run *storage.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)

	t.AppendRows([]table.Row{
		{"Run", run.RunID},
		{"Config", run.ConfigName},
		{"Mode", run.Mode},
		{"State", run.State},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
		{"Duration", duration(run)},
		{"Pages", run.Pages},
		{"Links found", run.LinksFound},
		{"Links unique", run.LinksUnique},
		{"Articles fetched", run.ArticlesFetched},
		{"Articles written", run.ArticlesWritten},
		{"Articles skipped", run.ArticlesSkipped},
		{"Articles failed", run.ArticlesFailed},
		{"Write errors", run.WriteErrors},
	})
	if run.Error != "" {
		t.AppendRow(table.Row{"Error", run.Error})
	}
	for _, file := range run.Files {
		t.AppendRow(table.Row{"File", file})
	}
	t.Render()
}

func duration(run *storage.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
