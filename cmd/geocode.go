package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <query>",
	Short: "Resolve one place description through the geocode cache and providers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "geocode")
		if err != nil {
			return err
		}
		defer env.Close()
		defer env.logCosts()

		query := strings.Join(args, " ")
		res, ok := env.Geocoder.Resolve(cmd.Context(), query)
		if !ok {
			return eris.Errorf("no geocode match for %q", query)
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
