package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jobcrawl-engine/internal/poll"
)

func crawlCommand() *cobra.Command {
	var (
		keywords []string
		pages    int
		export   bool
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl session now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			r, cleanup, err := a.newRunner(ctx, export)
			if err != nil {
				return err
			}
			defer cleanup()

			sum, err := r.RunOnce(ctx, poll.Options{Keywords: keywords, PageLimit: pages, Export: export})
			if err != nil {
				return err
			}
			renderSummary(sum)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "keyword to crawl (repeatable, overrides crawl.keywords)")
	cmd.Flags().IntVar(&pages, "pages", 0, "page limit per keyword (overrides crawl.page_limit)")
	cmd.Flags().BoolVar(&export, "export", false, "export all stored postings afterwards")
	return cmd
}

func renderSummary(sum poll.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("run %s  cutoff %s", sum.RunID, sum.Cutoff))
	t.AppendHeader(table.Row{"Keyword", "Pages", "New", "Stopped"})
	for _, k := range sum.Keywords {
		kw := k.Keyword
		if kw == "" {
			kw = "(all)"
		}
		t.AppendRow(table.Row{kw, k.Pages, k.Found, k.StopReason})
	}
	t.AppendFooter(table.Row{"Total", "", sum.Found, ""})
	t.Render()

	fmt.Printf("inserted %d, refreshed %d, expired removed %d, preloaded %d, took %s\n",
		sum.Inserted, sum.Updated, sum.Deleted, sum.Preloaded, sum.Duration.Round(time.Millisecond))
	if sum.Export != nil {
		fmt.Printf("exported %d records to %d file(s)\n", sum.Export.Records, len(sum.Export.Files))
	}
}
