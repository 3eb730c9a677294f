package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alvmarrod/harvester/internal/crawler"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var errTestFailed = errors.New("configuration test failed")

func newTestCommand(a *app) *cobra.Command {
	var (
		pages    int
		articles int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "test <config>",
		Short: "Dry-run a crawl document against the live site without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(args[0])
			if err != nil {
				return err
			}

			c, err := crawler.New(cfg, crawler.WithLogger(a.log))
			if err != nil {
				return err
			}

			report, err := c.TestConfig(cmd.Context(), pages, articles)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report: %w", err)
				}
				fmt.Fprintln(a.out, string(data))
			} else {
				renderReport(a, report)
			}

			if !report.Success {
				return errTestFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "index pages to test")
	cmd.Flags().IntVar(&articles, "articles", 3, "articles to test")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func renderReport(a *app, report *crawler.TestReport) {
	summary := table.NewWriter()
	summary.SetOutputMirror(a.out)
	summary.SetStyle(table.StyleLight)
	summary.SetTitle("Configuration test")
	summary.AppendRows([]table.Row{
		{"Pages tested", report.PagesTested},
		{"Links found", report.LinksFound},
		{"Articles tested", report.ArticlesTested},
		{"Articles parsed", report.ArticlesParsed},
		{"Stopped", report.Stopped},
		{"Success", report.Success},
	})
	summary.Render()

	if len(report.SampleLinks) > 0 {
		links := table.NewWriter()
		links.SetOutputMirror(a.out)
		links.SetStyle(table.StyleLight)
		links.SetTitle("Sample links")
		links.AppendHeader(table.Row{"Page", "Title", "URL"})
		for _, link := range report.SampleLinks {
			links.AppendRow(table.Row{link.Page, link.Title, link.URL})
		}
		links.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 40},
		})
		links.Render()
	}

	if len(report.SampleArticles) > 0 {
		articles := table.NewWriter()
		articles.SetOutputMirror(a.out)
		articles.SetStyle(table.StyleLight)
		articles.SetTitle("Sample articles")
		articles.AppendHeader(table.Row{"Title", "Time", "Length", "Preview"})
		for _, art := range report.SampleArticles {
			articles.AppendRow(table.Row{art.Title, art.Time, art.ContentLength, art.ContentPreview})
		}
		articles.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMax: 30},
			{Number: 4, WidthMax: 60},
		})
		articles.Render()
	}

	for _, msg := range report.Errors {
		fmt.Fprintln(a.out, "error:", msg)
	}
}
