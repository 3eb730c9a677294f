package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/alvmarrod/harvester/internal/fetch"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newRequestCommand(a *app) *cobra.Command {
	var (
		method  string
		headers []string
		data    string
		include bool
	)

	cmd := &cobra.Command{
		Use:   "request <url>",
		Short: "Send one request through the harvest transport and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hdr, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			f := fetch.NewCollyFetcher(fetch.Options{
				Timeout: a.settings.RequestTimeout,
				Logger:  a.log,
			})
			page, err := f.Do(cmd.Context(), fetch.Request{
				Method: method,
				URL:    args[0],
				Header: hdr,
				Body:   data,
			})
			if err != nil {
				return err
			}

			if include {
				renderResponse(a, page)
			}
			fmt.Fprintln(a.out, string(page.Body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, `request header as "Key: Value", repeatable`)
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print status and response headers")
	return cmd
}

// parseHeaders turns "Key: Value" pairs into a header. Repeated keys
// accumulate values.
func parseHeaders(pairs []string) (http.Header, error) {
	hdr := http.Header{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Key: Value\"", pair)
		}
		hdr.Add(key, strings.TrimSpace(value))
	}
	return hdr, nil
}

func renderResponse(a *app, page *fetch.Page) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"URL", page.URL},
		{"Status", page.StatusCode},
		{"Encoding", page.Encoding},
		{"Elapsed", page.Elapsed.String()},
		{"Bytes", len(page.Body)},
	})

	keys := make([]string, 0, len(page.Header))
	for key := range page.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		t.AppendRow(table.Row{key, strings.Join(page.Header[key], ", ")})
	}
	t.Render()
}
