package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/alvmarrod/harvester/internal/config"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newConfigsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage stored crawl documents",
	}
	cmd.AddCommand(
		newConfigsListCommand(a),
		newConfigsShowCommand(a),
		newConfigsDeleteCommand(a),
		newConfigsInitCommand(a),
		newConfigsImportCommand(a),
	)
	return cmd
}

func newConfigsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored crawl documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(a.out, "No crawl documents in %s\n", store.Dir())
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(a.out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Base URL", "Pages", "Delay (ms)", "JSONL"})

			for _, name := range names {
				cfg, err := store.Load(name)
				if err != nil {
					a.log.WithField("config", name).Warnf("Skipping unreadable document: %v", err)
					continue
				}
				t.AppendRow(table.Row{
					name,
					cfg.BaseURL,
					pageRange(cfg),
					fmt.Sprintf("%d-%d", cfg.DelayMin, cfg.DelayMax),
					cfg.UseJSONL,
				})
			}
			t.Render()
			return nil
		},
	}
}

func pageRange(cfg *config.CrawlConfig) string {
	stop := "end"
	if cfg.StopPage != config.MaxPage {
		stop = strconv.Itoa(cfg.StopPage)
	}
	return fmt.Sprintf("%d-%s", cfg.StartPage, stop)
}

func newConfigsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a crawl document with defaults applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			cfg, err := store.Load(args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(a.out, string(data))
			return nil
		},
	}
}

func newConfigsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored crawl document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newConfigsInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [name]",
		Short: "Write a document filled with defaults; without a name, seed an empty store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				created, err := store.EnsureDefault()
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(a.out, "Created default in %s\n", store.Dir())
				} else {
					fmt.Fprintf(a.out, "%s already holds documents\n", store.Dir())
				}
				return nil
			}

			if _, err := store.Load(args[0]); err == nil {
				return fmt.Errorf("config %s already exists", args[0])
			}
			if err := store.Save(args[0], config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s\n", args[0])
			return nil
		},
	}
}

func newConfigsImportCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a JSON or YAML document and add it to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			saved, err := store.Import(args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %s as %s\n", args[0], saved)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name to store the document under (default is the file name)")
	return cmd
}
