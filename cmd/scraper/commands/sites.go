package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/scraper-service/internal/registry"
)

func init() {
	rootCmd.AddCommand(sitesCmd)
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Lists the configured sites and their categories.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Only the registry is needed, so skip the browser and stores.
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := registry.Load(cfg.SitesFile)
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Site", "Categories"})
		for _, id := range reg.Sites() {
			cats, err := reg.Categories(id)
			if err != nil {
				return err
			}
			label := "-"
			if len(cats) > 0 {
				label = strings.Join(cats, ", ")
			}
			t.AppendRow(table.Row{id, label})
		}
		t.Render()
		return nil
	},
}
