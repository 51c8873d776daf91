package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-lookup/internal/export"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const timeLayout = "2006-01-02 15:04"

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <city | zip | pin>",
		Short: "Current weather and forecast for a location",
		Example: `  weatherctl search London
  weatherctl search 10001
  weatherctl search 110001`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			report, err := opts.client().Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newLocationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List searched locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			locations, err := opts.client().Locations(ctx)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), locations)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOUNTRY\tTIMEZONE")
			for _, l := range locations {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.ID, l.Name, l.Country, l.Timezone)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "history <location-id>",
		Short: "Stored weather records of a location, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "location id")
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			records, err := opts.client().History(ctx, id)
			if err != nil {
				return err
			}
			if summary {
				s := weather.Summarize(records)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), s)
				}
				printSummary(cmd.OutOrStdout(), s)
				return nil
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), records)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tTEMP\tHUMIDITY\tWIND\tCONDITIONS")
			for _, r := range records {
				fmt.Fprintf(tw, "%d\t%s\t%.1f°C\t%.0f%%\t%.1f km/h\t%s\n",
					r.ID, r.DateTime.Format(timeLayout), r.Temperature, r.Humidity, r.WindSpeed, r.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print aggregate statistics instead of records")
	return cmd
}

func newDetailsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "details <location-id>",
		Short: "Address, timezone, currency and nearby places of a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "location id")
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			d, err := opts.client().Details(ctx, id)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), d)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Address:   %s\n", d.FormattedAddress)
			fmt.Fprintf(w, "Timezone:  %s (%s)\n", d.Timezone.Name, d.Timezone.OffsetString)
			fmt.Fprintf(w, "Currency:  %s %s\n", d.Currency.Name, d.Currency.Symbol)
			if d.What3Words != "" {
				fmt.Fprintf(w, "what3words: ///%s\n", d.What3Words)
			}
			fmt.Fprintf(w, "Map:       %s\n", d.MapURL)
			if len(d.NearbyPlaces) > 0 {
				fmt.Fprintln(w, "Nearby:")
				for _, p := range d.NearbyPlaces {
					fmt.Fprintf(w, "  - %s (%s)\n", p.Name, p.Type)
				}
			}
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete one history record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := opts.client().DeleteRecord(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted record %d\n", id)
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export <location-id>",
		Short: "Download the history of a location as json, csv, pdf, markdown or xml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "location id")
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			data, name, err := opts.client().Export(ctx, id, f)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.JSON), "export format")
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "directory to write the file to")
	return cmd
}

var conditionIcons = map[weather.Condition]string{
	weather.ConditionClear:  "☀",
	weather.ConditionCloudy: "☁",
	weather.ConditionRain:   "☂",
	weather.ConditionSnow:   "❄",
	weather.ConditionStorm:  "⚡",
	weather.ConditionMist:   "≋",
}

func icon(c weather.Conditions) string {
	if s, ok := conditionIcons[c.Condition()]; ok {
		return s
	}
	return "?"
}

func printReport(w io.Writer, r weather.Report) {
	fmt.Fprintf(w, "%s (#%d)\n", r.Location.Name, r.Location.ID)
	cur := r.Current
	fmt.Fprintf(w, "%s %.1f°C  %s\n", icon(cur), cur.Temperature, cur.Description)
	fmt.Fprintf(w, "  humidity %.0f%%  wind %.1f km/h  pressure %.0f hPa\n", cur.Humidity, cur.WindSpeed, cur.Pressure)

	if len(r.Forecast) == 0 {
		return
	}
	fmt.Fprintln(w, "Forecast:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range r.Forecast {
		fmt.Fprintf(tw, "  %s\t%s\t%.1f°C\t%s\n", f.DateTime.Format("Mon Jan 2"), icon(f), f.Temperature, f.Description)
	}
	_ = tw.Flush()
}

func printSummary(w io.Writer, s weather.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	fmt.Fprintf(w, "%d records from %s to %s\n", s.Count, s.From.Format(timeLayout), s.To.Format(timeLayout))
	fmt.Fprintf(w, "temperature  min %.1f°C  avg %.1f°C  max %.1f°C\n", s.MinTemperature, s.AvgTemperature, s.MaxTemperature)
	fmt.Fprintf(w, "humidity     avg %.0f%%\n", s.AvgHumidity)
	fmt.Fprintf(w, "wind         avg %.1f km/h\n", s.AvgWindSpeed)
	fmt.Fprintf(w, "mostly       %s\n", s.Condition)
}
