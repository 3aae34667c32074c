package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/usecase"
)

var errNoResults = errors.New(handler.NoResultsMessage)

var runFlags struct {
	site     string
	category string
	debug    bool
	force    bool
}

func init() {
	runCmd.Flags().StringVar(&runFlags.site, "site", "", "Site to scrape, as listed by the sites command.")
	runCmd.Flags().StringVar(&runFlags.category, "category", "", "Category of the site, when it has categories.")
	runCmd.Flags().BoolVar(&runFlags.debug, "debug", false, "Log every page visited and the containers found on it.")
	runCmd.Flags().BoolVar(&runFlags.force, "force", false, "Scrape even if a recent run of the same site exists.")
	_ = runCmd.MarkFlagRequired("site")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --site <site> [--category <category>] [--debug] [--force]",
	Short: "Scrapes one site and writes the products to a CSV file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), runFlags.debug)
		if err != nil {
			return err
		}
		defer a.close()

		s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = fmt.Sprintf(" Scraping %s %s", runFlags.site, runFlags.category)
		// Log lines would tear through the spinner in debug mode.
		if !runFlags.debug {
			s.Start()
		}
		result, err := a.scraper.RunScrape(cmd.Context(), usecase.RunRequest{
			Site:     runFlags.site,
			Category: runFlags.category,
			Debug:    runFlags.debug,
			Force:    runFlags.force,
		})
		s.Stop()

		if err != nil {
			return fmt.Errorf("%w (%v)", errNoResults, err)
		}
		if len(result.Records) == 0 {
			return errNoResults
		}

		renderRecords(cmd, result)
		path, err := a.scraper.ResultPath(result.Filename)
		if err != nil {
			return err
		}
		note := ""
		if result.Cached {
			note = " (from a recent run)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %d products%s. Results saved to %s\n", len(result.Records), note, path)
		return nil
	},
}

func renderRecords(cmd *cobra.Command, result *entity.RunResult) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"#", "Title", "Buy button"})
	for i, r := range result.Records {
		buy := "no"
		if r.HasBuyButton {
			buy = "yes"
		}
		t.AppendRow(table.Row{i + 1, r.Title, buy})
	}
	t.AppendFooter(table.Row{"", "Total", len(result.Records)})
	t.Render()
}
