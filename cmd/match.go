package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/matcher"
	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/writer"
)

var (
	matchPricelist string
	matchOutput    string
)

var matchCmd = &cobra.Command{
	Use:   "match <inquiry.xlsx>",
	Short: "Match one inquiry workbook against the price list",
	Long:  "Runs the full pipeline: extracts BOQ items, embeds them with the stored (or given) price list, ranks every item, and writes a results workbook.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		inquiryPath := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		embedder, err := initEmbedder()
		if err != nil {
			return err
		}

		// Without --pricelist the stored catalog is used.
		var catalog []model.CatalogEntry
		if matchPricelist != "" {
			catalog, err = loadPricelist(matchPricelist)
			if err != nil {
				return eris.Wrap(err, "load pricelist")
			}
		}

		engine := matcher.NewEngine(cfg, st, embedder,
			matcher.WithProgress(func(step, message string) {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", step, message)
			}))

		res, err := engine.Run(ctx, inquiryPath, catalog)
		if err != nil {
			return eris.Wrap(err, "match run")
		}

		output := matchOutput
		if output == "" {
			output = outputPathFor(inquiryPath)
		}
		if err := writer.Write(output, res.Results); err != nil {
			return err
		}

		zap.L().Info("match complete",
			zap.String("job_id", res.Job.ID),
			zap.Int("items", len(res.Results)),
			zap.Int("matched", res.MatchedCount),
			zap.String("output", output),
		)

		fmt.Printf("Matched %d of %d items (job %s)\nResults written to %s\n",
			res.MatchedCount, len(res.Results), res.Job.ID, output)
		return nil
	},
}

// outputPathFor derives the results path from the inquiry path.
func outputPathFor(inquiryPath string) string {
	base := strings.TrimSuffix(inquiryPath, ".xlsx")
	return base + "-results.xlsx"
}

func init() {
	matchCmd.Flags().StringVar(&matchPricelist, "pricelist", "", "pricelist workbook to match against (default: stored catalog)")
	matchCmd.Flags().StringVar(&matchOutput, "output", "", "results workbook path (default: <inquiry>-results.xlsx)")
	rootCmd.AddCommand(matchCmd)
}
