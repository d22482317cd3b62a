package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/insights-dashboard/internal/dashboard"
	"github.com/AngelCh415/insights-dashboard/internal/export"
	"github.com/AngelCh415/insights-dashboard/internal/ingest"
	"github.com/AngelCh415/insights-dashboard/internal/loader"
	"github.com/AngelCh415/insights-dashboard/internal/table"
)

type exportOptions struct {
	out      string
	format   string
	filename string
	search   string
	filters  []string
	sort     string
	dir      string
	rows     int
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a dashboard report to a file",
	}
	cmd.PersistentFlags().StringVarP(&opts.out, "out", "o", "", "output directory (default EXPORT_DIR)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "csv", "csv or xlsx")
	cmd.PersistentFlags().StringVar(&opts.filename, "filename", "", "file name without extension")

	campaigns := &cobra.Command{
		Use:   "campaigns",
		Short: "Export the campaign table after search, filters and sort",
		Example: `  dashctl export campaigns --search holiday
  dashctl export campaigns --filter roas:greater:3 --sort revenue --dir desc -f xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExportCampaigns(cmd, root, opts)
		},
	}
	campaigns.Flags().StringVarP(&opts.search, "search", "s", "", "search text")
	campaigns.Flags().StringArrayVar(&opts.filters, "filter", nil, "column:operator:value, repeatable")
	campaigns.Flags().StringVar(&opts.sort, "sort", "", "sort column")
	campaigns.Flags().StringVar(&opts.dir, "dir", "asc", "asc or desc")
	campaigns.Flags().IntVar(&opts.rows, "rows", 0, "synthetic campaign rows to generate")

	revenue := &cobra.Command{
		Use:   "revenue",
		Short: "Export the revenue time series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExportRevenue(cmd, root, opts)
		},
	}

	cmd.AddCommand(campaigns, revenue)
	return cmd
}

type exportEnv struct {
	svc    *dashboard.Service
	ex     *export.Exporter
	format export.Format
}

func (o *exportOptions) setup(cmd *cobra.Command, root *rootOptions) (*exportEnv, error) {
	cfg, err := root.load()
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	log := root.logger(cmd, cfg)

	var src ingest.Source
	if cfg.APIBaseURL != "" {
		src = ingest.NewAPIClient(cfg.APIBaseURL, cfg.APITimeout)
	} else {
		src = ingest.NewSynthetic(ingest.WithLatency(0), ingest.WithCampaignCount(o.rows))
	}
	svc := dashboard.New(src, loader.NewRegistry(loader.WithLogger(log)), log, dashboard.Options{
		Policy:  loader.RetryPolicy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryDelay, MaxJitter: cfg.RetryJitter},
		Timeout: cfg.LoadTimeout,
	})

	dir := o.out
	if dir == "" {
		dir = cfg.ExportDir
	}
	return &exportEnv{svc: svc, ex: export.NewExporter(export.FileSink{Dir: dir}, log), format: format}, nil
}

func (o *exportOptions) query() (table.Query, error) {
	q := table.Query{Search: o.search}
	for _, f := range o.filters {
		p, err := table.ParsePredicate(f)
		if err != nil {
			return q, err
		}
		q.Predicates = append(q.Predicates, p)
	}
	if o.sort != "" {
		col, err := table.ParseColumn(o.sort)
		if err != nil {
			return q, err
		}
		dir, err := table.ParseDirection(o.dir)
		if err != nil {
			return q, err
		}
		q.Sort = &table.SortConfig{Column: col, Direction: dir}
	}
	return q, nil
}

func runExportCampaigns(cmd *cobra.Command, root *rootOptions, o *exportOptions) error {
	q, err := o.query()
	if err != nil {
		return err
	}
	env, err := o.setup(cmd, root)
	if err != nil {
		return err
	}
	rows, err := env.svc.Rows(cmd.Context(), q)
	if err != nil {
		return err
	}
	out, err := export.Export(cmd.Context(), env.ex, env.format, rows, nameOr(o.filename, "campaign-performance"), export.CampaignLabels)
	if err != nil {
		return err
	}
	return report(cmd, out)
}

func runExportRevenue(cmd *cobra.Command, root *rootOptions, o *exportOptions) error {
	env, err := o.setup(cmd, root)
	if err != nil {
		return err
	}
	series, err := env.svc.Series(cmd.Context(), "revenue")
	if err != nil {
		return err
	}
	out, err := export.Export(cmd.Context(), env.ex, env.format, series.Points, nameOr(o.filename, "revenue-data"), export.RevenueLabels)
	if err != nil {
		return err
	}
	return report(cmd, out)
}

func report(cmd *cobra.Command, out export.Outcome) error {
	if !out.Written {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "nothing to export")
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows, %d bytes)\n", out.Filename, out.Rows, out.Bytes)
	return err
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
