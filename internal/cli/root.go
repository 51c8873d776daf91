package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-lookup/internal/client"
)

const defaultAPIURL = "http://localhost:8000"

type options struct {
	apiURL  string
	timeout time.Duration
	json    bool
}

func (o *options) client() *client.Client {
	return client.New(o.apiURL)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// NewRootCmd builds the weatherctl command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "weatherctl",
		Short: "look up weather by city name or postal code",
		Long: `
weatherctl talks to a weather-lookup server. Searches accept a city name
(at least 2 characters), a 5-digit US ZIP code or a 6-digit Indian PIN code.
Every search is stored in the location's history.
`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", apiURL, "base URL of the weather API (env WEATHER_API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	root.AddCommand(
		newSearchCmd(opts),
		newLocationsCmd(opts),
		newHistoryCmd(opts),
		newDetailsCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
		newInteractiveCmd(opts),
	)
	return root
}

// Execute runs weatherctl with the process arguments.
func Execute(version string) {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage prefers the user-facing text of API and transport failures.
func errorMessage(err error) string {
	var (
		apiErr *client.APIError
		urlErr *url.Error
	)
	if errors.As(err, &apiErr) || errors.As(err, &urlErr) {
		return client.UserMessage(err)
	}
	return err.Error()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
