package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/pdfprecheck/internal/naming"
)

func parseNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-name <filename>...",
		Short: "Show how filenames map to client id, document type and label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tCLIENT\tTYPE\tLABEL")
			for _, f := range args {
				n := naming.ParseFilename(f)
				client := n.ClientID
				if client == "" {
					client = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f, client, n.DocType, n.Label)
			}
			return tw.Flush()
		},
	}
}
