package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wko-katas/katas-engine/internal/catalog"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file name>...",
		Short: "Show how video file names are classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, name := range args {
				fields, err := catalog.Classify(name)
				if err != nil {
					rows = append(rows, []string{name, "", "", "", err.Error()})
					continue
				}
				order := "-"
				if fields.Order != nil {
					order = strconv.Itoa(*fields.Order)
				}
				rows = append(rows, []string{name, fields.KataName, string(fields.BeltLevel), order, string(fields.Category)})
			}

			_, err := cmd.OutOrStdout().Write([]byte(renderTable(
				[]string{"File", "Kata", "Belt", "Order", "Category / Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			) + "\n"))
			return err
		},
	}
}
