package profile

import (
	"fmt"
	"github.com/planificaia/aliada/internal/catalog"
	"github.com/planificaia/aliada/internal/onboarding"
	"github.com/spf13/cobra"
	"strings"
)

var Group = &cobra.Group{
	ID:    "profile",
	Title: "Onboarding data",
}

var Steps = &cobra.Command{
	Use:     "steps",
	GroupID: "profile",
	Short:   "List onboarding steps",
	Long:    "Prints the onboarding questions in the order they are asked together with their options",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		table, err := onboarding.DefaultTable()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, step := range table.Steps {
			_, _ = fmt.Fprintf(out, "%d. %s (%s) %s\n", i+1, step.Key, step.Kind, step.Prompt)
			if step.DependsOn != "" {
				_, _ = fmt.Fprintf(out, "   depends on %s\n", step.DependsOn)
				continue
			}
			options := table.OptionsFor(step.Key, nil)
			if len(options) == 0 {
				continue
			}
			labels := make([]string, 0, len(options))
			for _, o := range options {
				labels = append(labels, o.Label)
			}
			_, _ = fmt.Fprintf(out, "   %s\n", strings.Join(labels, ", "))
		}
		return nil
	},
}

var Locations = &cobra.Command{
	Use:     "locations [region [subregion]]",
	GroupID: "profile",
	Short:   "Browse the location catalog",
	Long:    "Lists the regions, the subregions of a region or the localities of a subregion",
	Args:    cobra.MaximumNArgs(2), //nolint:mnd // region and subregion
	RunE: func(cmd *cobra.Command, args []string) error {
		locations, err := catalog.Default()
		if err != nil {
			return err
		}
		var names []string
		switch len(args) {
		case 0:
			names = locations.Regions()
		case 1:
			names = locations.Subregions(args[0])
		default:
			names = locations.Localities(args[0], args[1])
		}
		if len(names) == 0 {
			return fmt.Errorf("nothing found for %q", strings.Join(args, " > "))
		}
		for _, name := range names {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
