package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-lookup/internal/client"
	"github.com/i474232898/weather-lookup/internal/weather"
)

func newInteractiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Search each location typed on stdin; a new line replaces a pending search",
		Long: `Reads one location per line. Every line starts a new search and cancels
the one still running, so only the answer to the latest line is printed.

$ printf 'Lond\nLondon\n' | weatherctl interactive
London, England, United Kingdom (#1)
…`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && isTerminal(f) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Enter a city, US ZIP or Indian PIN code per line…")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var (
				searcher = client.NewSearcher(opts.client())
				mu       sync.Mutex
				pending  []<-chan struct{}
			)
			out := cmd.OutOrStdout()

			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				input := scanner.Text()
				if strings.TrimSpace(input) == "" {
					continue
				}
				searchCtx, searchCancel := context.WithTimeout(ctx, opts.timeout)
				done := searcher.Go(searchCtx, input, func(report weather.Report, err error) {
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						fmt.Fprintf(out, "%s: %s\n", strings.TrimSpace(input), errorMessage(err))
						return
					}
					printReport(out, report)
				})
				pending = append(pending, done)
				go func() {
					<-done
					searchCancel()
				}()
			}
			for _, done := range pending {
				<-done
			}
			return scanner.Err()
		},
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
