package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the stored price list",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <pricelist.xlsx>",
	Short: "Load a pricelist workbook into the store",
	Long:  "Replaces the stored catalog with the entries of the given workbook. Rows without a description or with a non-positive rate are dropped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := loadPricelist(args[0])
		if err != nil {
			return eris.Wrap(err, "catalog import")
		}

		if err := st.ReplaceCatalog(ctx, entries); err != nil {
			return eris.Wrap(err, "catalog import")
		}

		zap.L().Info("catalog imported",
			zap.String("pricelist", args[0]),
			zap.Int("entries", len(entries)),
		)
		fmt.Printf("Imported %d catalog entries\n", len(entries))
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored catalog entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ListCatalog(ctx)
		if err != nil {
			return eris.Wrap(err, "catalog list")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "Catalog is empty.")
			return nil
		}

		formatCatalog(os.Stdout, entries)
		return nil
	},
}

func formatCatalog(out io.Writer, entries []model.CatalogEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDESCRIPTION\tUNIT\tRATE")
	_, _ = fmt.Fprintln(w, "--\t-----------\t----\t----")

	for _, e := range entries {
		description := e.Description
		if len(description) > 60 {
			description = description[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", e.ID, description, e.Unit, e.Rate)
	}
	_ = w.Flush()
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
