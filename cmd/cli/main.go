package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"ablab/adapters/ingest"
	"ablab/adapters/postgres"
	"ablab/adapters/report"
	"ablab/domain/core"
	"ablab/domain/experiment"
	"ablab/internal/analysis"
	"ablab/internal/config"
	"ablab/internal/testkit"
	"ablab/internal/validation"
)

func main() {
	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		log.Printf("[CLI] Loaded environment from .env")
	}

	rootCmd := &cobra.Command{
		Use:   "ablab",
		Short: "A/B experiment validation and statistical analysis",
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newAnalyzeCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Run the validation battery without hypothesis testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load()
			if err != nil {
				return err
			}
			manifest, err := ingest.LoadManifest(args[0])
			if err != nil {
				return err
			}

			engine := validationEngine(appCfg)
			for i := range manifest.Experiments {
				cfg := &manifest.Experiments[i]
				ds, err := loadDataset(cfg)
				if err != nil {
					return err
				}
				runID := core.RunID(core.NewID())
				rep := engine.Run(runID, ds, cfg)
				fmt.Printf("%s: %s\n", cfg.ID, rep.Status())
				for _, v := range rep.Verdicts {
					fmt.Printf("  [%s] %s: %s\n", v.Status, v.Check, v.Message)
				}
			}
			return nil
		},
	}
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var outputDir string
	var save bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [manifest]",
		Short: "Validate and test every experiment in a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load()
			if err != nil {
				return err
			}
			manifest, err := ingest.LoadManifest(args[0])
			if err != nil {
				return err
			}

			items := make([]analysis.Item, 0, len(manifest.Experiments))
			for i := range manifest.Experiments {
				cfg := &manifest.Experiments[i]
				ds, err := loadDataset(cfg)
				if err != nil {
					return err
				}
				items = append(items, analysis.Item{Dataset: ds, Config: cfg})
			}

			pipeline := analysis.NewPipelineWithValidator(validationEngine(appCfg))
			analyses, err := pipeline.AnalyzeAll(cmd.Context(), items)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(analyses)
			}

			if outputDir != "" {
				if err := writeReports(analyses, outputDir); err != nil {
					return err
				}
			}

			fmt.Print(report.Summary(analyses))

			if save {
				if err := saveAnalyses(cmd.Context(), appCfg, analyses); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for Markdown, HTML and Excel reports")
	cmd.Flags().BoolVar(&save, "save", false, "Persist results to the configured database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw analysis JSON to stdout")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var seed int64
	var sessions int
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deterministic synthetic experiment dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			genCfg := testkit.DefaultConfig()
			genCfg.Seed = seed
			genCfg.SessionCount = sessions

			gen := testkit.NewGenerator(genCfg)
			ds := gen.Generate()
			if err := testkit.WriteCSV(ds, out); err != nil {
				return err
			}
			fmt.Printf("Wrote %d sessions to %s\n", ds.Len(), out)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().IntVar(&sessions, "sessions", 2000, "Number of sessions to generate")
	cmd.Flags().StringVarP(&out, "out", "o", "synthetic.csv", "Output CSV path")
	return cmd
}

func validationEngine(appCfg *config.Config) *validation.Engine {
	return validation.NewEngineWithThresholds(validation.Thresholds{
		SRMAlpha:        appCfg.Analysis.SRMAlpha,
		BalanceWarnSMD:  appCfg.Analysis.BalanceWarnSMD,
		BalanceFailSMD:  appCfg.Analysis.BalanceFailSMD,
		TemporalMaxCV:   appCfg.Analysis.TemporalMaxCV,
		OutlierMaxShare: appCfg.Analysis.OutlierMaxShare,
	})
}

func loadDataset(cfg *experiment.Config) (*experiment.Dataset, error) {
	reader := ingest.NewDataReader(cfg.SourceFile)
	return reader.ReadDataset(cfg.ID)
}

func writeReports(analyses []*analysis.Analysis, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, a := range analyses {
		base := filepath.Join(dir, string(a.ExperimentID))
		if err := os.WriteFile(base+".md", []byte(report.Markdown(a)), 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(base+".html", report.HTML(a), 0o644); err != nil {
			return err
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(report.Summary(analyses)), 0o644); err != nil {
		return err
	}
	return report.WriteWorkbook(analyses, filepath.Join(dir, "results.xlsx"))
}

func saveAnalyses(ctx context.Context, appCfg *config.Config, analyses []*analysis.Analysis) error {
	if err := appCfg.RequireDatabase(); err != nil {
		return err
	}
	db, err := sqlx.Connect("postgres", appCfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	for _, a := range analyses {
		if err := repo.SaveAnalysis(ctx, a); err != nil {
			return err
		}
	}
	log.Printf("[CLI] Saved %d analysis runs", len(analyses))
	return nil
}
