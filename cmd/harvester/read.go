package main

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/alvmarrod/harvester/internal/output"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newReadCommand(a *app) *cobra.Command {
	var (
		prefix string
		limit  int
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "read <dir>",
		Short: "Print the records stored in a directory's segment files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := output.SegmentFiles(args[0], prefix)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no %s_*%s files in %s", prefixOrDefault(prefix), output.DefaultExt, args[0])
			}

			records, err := output.ReadAll(args[0], prefix)
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			if raw {
				enc := json.NewEncoder(a.out)
				enc.SetEscapeHTML(false)
				for _, rec := range records {
					if err := enc.Encode(rec); err != nil {
						return err
					}
				}
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(a.out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Time", "Title", "Chars"})
			for i, rec := range records {
				t.AppendRow(table.Row{i + 1, rec.Time, rec.Title, utf8.RuneCountInString(rec.Content)})
			}
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, WidthMax: 60},
			})
			t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d files", len(files)), len(records)})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", output.DefaultPrefix, "segment file prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records, 0 for all")
	cmd.Flags().BoolVar(&raw, "raw", false, "print records as JSON lines")
	return cmd
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return output.DefaultPrefix
	}
	return prefix
}
