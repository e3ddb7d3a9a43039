package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"ai_registry/infrastructure/dom"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <file.html>",
	Short: "Classify a local HTML file with a synthetic layout and print the identities it would get.",
	Long: `Classify a local HTML file with a synthetic layout and print the identities it would get.

There is no layout engine behind this command: every rendered element gets its own
row, so nothing is occluded and everything is inside the viewport. Use it to check
identity and path assignment, not visibility.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := dom.Parse(string(src))
		if err != nil {
			return err
		}
		rowHeight, _ := cmd.Flags().GetFloat64("row-height")
		dom.AutoLayout(doc, rowHeight)

		eng := newEngine(doc, nil, app.cfg, app.logger)
		defer eng.Close()
		descriptors := eng.CaptureInteractiveElements(cmd.Context())

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(descriptors)
		}

		if len(descriptors) == 0 {
			fmt.Fprintln(out, "No interactive elements found.")
			return nil
		}

		page := goquery.NewDocumentFromNode(doc.Root())
		fmt.Fprintf(out, "%s: %d forms, %d links, %d interactive elements\n\n",
			args[0], page.Find("form").Length(), page.Find("a[href]").Length(), len(descriptors))

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TARGET\tACTION\tPATH\t")
		for _, d := range descriptors {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", d.TargetID, d.InteractionType, d.Path)
		}
		return w.Flush()
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "Print descriptors as JSON")
	showCmd.Flags().Float64("row-height", 24, "Height of each synthetic layout row")
	rootCmd.AddCommand(showCmd)
}
