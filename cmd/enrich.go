package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ortelius/cve-triage/internal/enrich"
	"github.com/ortelius/cve-triage/internal/export"
	"github.com/ortelius/cve-triage/internal/triage"
	"github.com/ortelius/cve-triage/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	inputFile string
	owner     string
	outFile   string
	sortField string
	sortDesc  bool
	useLocal  bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [CVE-ID...]",
	Short: "Enrich identifiers from arguments or a file and write the XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readCLIInput(args)
		if err != nil {
			return err
		}

		provider, err := cliProvider(cmd.Context())
		if err != nil {
			return err
		}

		norm, err := normalizer(cfg)
		if err != nil {
			return err
		}

		session := triage.NewSession("cli", triage.Options{
			Provider:         provider,
			Normalizer:       norm,
			IdentifierColumn: cfg.IdentifierColumn,
			Logger:           logger,
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
		defer cancel()

		if _, err := session.Submit(ctx, in); err != nil {
			return err
		}

		rows, err := session.Sorted(sortField, sortDesc)
		if err != nil {
			return err
		}

		out := outFile
		if out == "" {
			out = cfg.ExportFilename
		}
		if err := writeWorkbook(out, rows); err != nil {
			return err
		}

		printRows(cmd.OutOrStdout(), rows)
		logger.Info("Workbook written", zap.String("file", out), zap.Int("rows", len(rows)))
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVarP(&inputFile, "file", "f", "", "CSV (with a cve_id column) or text file of identifiers")
	enrichCmd.Flags().StringVar(&owner, "owner", "", "owner to suggest on every row")
	enrichCmd.Flags().StringVarP(&outFile, "output", "o", "", "XLSX output path (default: export_filename)")
	enrichCmd.Flags().StringVar(&sortField, "sort", "", "sort field: "+strings.Join(triage.SortFields(), ", "))
	enrichCmd.Flags().BoolVar(&sortDesc, "desc", false, "sort descending")
	enrichCmd.Flags().BoolVar(&useLocal, "local", false, "enrich in-process from the public feeds instead of the API")
	rootCmd.AddCommand(enrichCmd)
}

func readCLIInput(args []string) (triage.Input, error) {
	in := triage.Input{Owner: owner, Text: strings.Join(args, "\n")}
	if inputFile == "" {
		return in, nil
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return in, fmt.Errorf("reading %s: %w", inputFile, err)
	}
	if strings.HasSuffix(strings.ToLower(inputFile), ".csv") {
		in.CSV = string(data)
	} else {
		in.Text = strings.TrimSpace(in.Text + "\n" + string(data))
	}
	return in, nil
}

func cliProvider(ctx context.Context) (enrich.Provider, error) {
	if !useLocal {
		return triageProvider(cfg, logger)
	}
	svc, _, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func writeWorkbook(path string, rows []model.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.Default().Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printRows(w io.Writer, rows []model.Row) {
	fmt.Fprintf(w, "%-18s %6s %8s %-4s %8s  %s\n", "CVE", "CVSS", "EPSS", "KEV", "PRIORITY", "PRODUCT")
	for _, r := range rows {
		fmt.Fprintf(w, "%-18s %6s %8s %-4s %8s  %s\n",
			r.CveID, r.CVSSBase, r.EPSS, r.ExploitedInWild, r.PriorityScore, r.AffectedProduct)
	}
}
