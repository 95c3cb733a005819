package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/category"
	"github.com/pable/go-qb-metrics/internal/report"
)

var (
	taxonomyFile string
	taxonomyYAML bool
	taxonomyTry  []string
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the effective category taxonomy",
	Long: `Print the separators, rewrite table and roll-up definitions used to
normalize packet category labels. Use --yaml to dump a file that can be edited
and passed back with --taxonomy, and --try to see how labels normalize.`,
	Args: cobra.NoArgs,
	RunE: runTaxonomy,
}

func init() {
	taxonomyCmd.Flags().StringVar(&taxonomyFile, "taxonomy", "", "taxonomy YAML (default: config, then built in)")
	taxonomyCmd.Flags().BoolVar(&taxonomyYAML, "yaml", false, "print as YAML")
	taxonomyCmd.Flags().StringArrayVar(&taxonomyTry, "try", nil, "normalize this raw label (repeatable)")
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	path := taxonomyFile
	if path == "" {
		path = cfg.TaxonomyFile
	}
	tax, err := category.Load(path)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}

	if len(taxonomyTry) > 0 {
		n := category.NewNormalizer(tax)
		for _, raw := range taxonomyTry {
			fmt.Fprintf(os.Stdout, "%q => %q\n", raw, n.Normalize(raw))
		}
		return nil
	}

	if taxonomyYAML {
		out, err := tax.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	quoted := make([]string, len(tax.Separators))
	for i, s := range tax.Separators {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	fmt.Fprintf(os.Stdout, "\nSeparators: %s\n\n--- Rewrites ---\n\n", strings.Join(quoted, ", "))

	table := report.NewTable(os.Stdout, tw.AlignLeft)
	table.Header("LABEL", "CATEGORY")
	froms := make([]string, 0, len(tax.Rewrites))
	for from := range tax.Rewrites {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		table.Append(from, tax.Rewrites[from])
	}
	table.Render()

	fmt.Fprintf(os.Stdout, "\n--- Roll-ups ---\n\n")
	rt := report.NewTable(os.Stdout, tw.AlignLeft)
	rt.Header("CATEGORY", "CONSTITUENTS")
	for _, r := range tax.Rollups {
		names := make([]string, len(r.Constituents))
		for i, c := range r.Constituents {
			names[i] = string(c)
		}
		rt.Append(string(r.Name), strings.Join(names, ", "))
	}
	rt.Render()
	return nil
}
