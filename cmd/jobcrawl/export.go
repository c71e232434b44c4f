package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobcrawl-engine/internal/poll"
)

func exportCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored postings as JSONL to export.dir or export.gcs_bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg
			if dir != "" {
				cfg.Export.Dir = dir
				cfg.Export.GCSBucket = ""
			}
			e, closeExp, err := poll.BuildExporter(ctx, cfg, a.log.WithComponent("export"))
			if err != nil {
				return err
			}
			defer func() { _ = closeExp() }()

			res, err := poll.ExportAll(ctx, a.store, e)
			if err != nil {
				return err
			}
			fmt.Printf("exported %d records to %s\n", res.Records, e.Target)
			for _, f := range res.Files {
				fmt.Println("  " + f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "local output directory (overrides export.dir and export.gcs_bucket)")
	return cmd
}
