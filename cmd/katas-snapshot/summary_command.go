package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/models"
)

func newSummaryCommand() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "summary <snapshot>",
		Short: "Show katas per belt in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			katas, err := catalog.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			catalog.Sort(katas)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Katas: %d\n", len(katas))
			fmt.Fprintln(out, renderBeltSummary(katas))
			if list {
				fmt.Fprintln(out, renderKataTable(katas))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "Also list every kata")
	return cmd
}

func renderBeltSummary(katas []models.Kata) string {
	counts := catalog.SummarizeByBelt(katas)
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{string(c.Belt), string(models.CategoryFor(c.Belt)), strconv.Itoa(c.Count)})
	}
	return renderTable([]string{"Belt", "Category", "Katas"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

func renderKataTable(katas []models.Kata) string {
	rows := make([][]string, 0, len(katas))
	for _, k := range katas {
		order := "-"
		if k.Order != nil {
			order = strconv.Itoa(*k.Order)
		}
		rows = append(rows, []string{k.ID, string(k.BeltLevel), order, k.KataName})
	}
	return renderTable([]string{"ID", "Belt", "Order", "Kata"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}
