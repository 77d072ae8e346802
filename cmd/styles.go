package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shouni/gemini-headshot-kit/pkg/styles"

	"github.com/spf13/cobra"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "選択できるスタイルの一覧を表示します。",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := styles.Default()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tINPUT")
		for _, s := range catalog.All() {
			input := "-"
			if s.RequiresUserInput() {
				input = s.UserInput.Label
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, input)
		}
		return w.Flush()
	},
}
