package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"jobcrawl-engine/internal/store"
)

func jobsCommand() *cobra.Command {
	var opts store.ListOpts
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List stored postings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := a.store.List(ctx, opts)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Posted", "Deadline", "Company", "Title", "Location", "Keyword"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Name: "Company", WidthMax: 24, WidthMaxEnforcer: text.Trim},
				{Name: "Title", WidthMax: 48, WidthMaxEnforcer: text.Trim},
			})
			for _, j := range jobs {
				t.AppendRow(table.Row{j.ExternalID, j.PostedDate, j.DeadlineDate, j.Company, j.Title, j.Location, j.Keyword})
			}
			t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(jobs)})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Sort, "sort", "posted", "posted | crawled | deadline | company | title")
	cmd.Flags().StringVar(&opts.Window, "window", "7d", "24h | 7d | 30d | all")
	cmd.Flags().StringVar(&opts.Keyword, "keyword", "", "only postings found under this keyword")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum rows, 0 for all")
	return cmd
}
