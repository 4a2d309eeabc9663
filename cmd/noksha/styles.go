package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/design"
)

var stylesGenderFlag string

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the preset styles",
	RunE: func(cmd *cobra.Command, args []string) error {
		styles := catalog.PresetStyles
		if stylesGenderFlag != "" {
			g, err := parseGender(stylesGenderFlag)
			if err != nil {
				return err
			}
			styles = catalog.StylesFor(g)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tGENDER\tCATEGORY")
		for _, s := range styles {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Gender, s.Category)
		}
		return tw.Flush()
	},
}

func init() {
	stylesCmd.Flags().StringVarP(&stylesGenderFlag, "gender", "g", "", "Only styles for this gender (female, male)")
}

// parseGender accepts gender names case-insensitively.
func parseGender(s string) (design.Gender, error) {
	for _, g := range []design.Gender{design.GenderFemale, design.GenderMale} {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q (want female or male)", s)
}
