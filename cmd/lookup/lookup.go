package lookup

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/destinations"
	"github.com/merak-travel/merak/internal/logger"
)

// Command creates the lookup command which queries the destination catalog offline.
func Command(_ *conf.Settings) *cobra.Command {
	var prefs destinations.Preferences

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find the catalog destination that best matches preferences",
		Long:  "Runs the lookup_destination tool locally, without the model, and prints the recommendation as YAML.",
		Example: `  merak lookup --season fall --interest food --interest culture
  merak lookup --region europe --days 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// a single lookup gains nothing from the cache
			svc := destinations.NewService(0,
				destinations.WithLogger(logger.Global().Module("destinations")))
			return Run(cmd.OutOrStdout(), svc, prefs)
		},
	}

	cmd.Flags().StringVar(&prefs.Destination, "destination", "", "Destination name, city or country")
	cmd.Flags().StringVar(&prefs.Region, "region", "", "Region such as Asia, Europe, Americas or Oceania")
	cmd.Flags().StringVar(&prefs.Season, "season", "", "Travel season: spring, summer, fall or winter")
	cmd.Flags().StringSliceVar(&prefs.Interests, "interest", nil, "Interest theme, repeatable (food, hiking, culture, ...)")
	cmd.Flags().IntVar(&prefs.TripLengthDays, "days", 0, "Trip length in days")

	return cmd
}

// Run looks up prefs and writes the recommendation to out as YAML.
func Run(out io.Writer, svc *destinations.Service, prefs destinations.Preferences) error {
	rec, err := svc.Lookup(prefs)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return err
	}
	return enc.Close()
}
