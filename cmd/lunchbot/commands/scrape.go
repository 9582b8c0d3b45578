package commands

import (
	"errors"
	"log/slog"

	"lunchbot/lib/fetch"
	"lunchbot/lib/generate"
	"lunchbot/lib/serviceutil"
	"lunchbot/lib/timezone"
	"lunchbot/services/lunchbot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeDate      *string
	scrapeTranslate *bool
)

func init() {
	scrapeDate = scrapeCmd.Flags().String("date", "", "Scrape the menu of this day (YYYY-MM-DD) instead of today.")
	scrapeTranslate = scrapeCmd.Flags().Bool("translate", false, "Translate dish names of the CFEL menu.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--date <YYYY-MM-DD>] [--translate]",
	Short: "Prints the dishes of a day without generating or publishing anything.",
	Run: func(cmd *cobra.Command, args []string) {
		now, err := parseDate(*scrapeDate)
		if err != nil {
			serviceutil.Fatal("failed to parse date", err)
		}
		config := loadConfig()
		if config.Sources.AlsterfoodURL == "" && config.Sources.CfelURL == "" {
			serviceutil.Fatal("nothing to scrape", errors.New("no source url is configured"))
		}

		fetcher := fetch.NewFetcher(fetch.Options{
			ReadyTimeout: seconds(config.Sources.ReadyTimeoutSeconds),
			Output:       serviceOptions().Output,
		})
		var translator generate.Translator
		if *scrapeTranslate {
			translator = generate.NewOpenAI(generate.OpenAIOptions{
				APIKey:  config.Generation.OpenAIAPIKey,
				BaseURL: config.Generation.OpenAIBaseURL,
			})
		}

		pipeline := &lunchbot.Pipeline{
			Sources: lunchbot.NewSources(config.Sources, fetcher, translator),
		}
		dishes, err := pipeline.Scrape(cmd.Context(), timezone.Date(now))
		if err != nil {
			slog.Warn("some sources failed", "err", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Dish", "Price", "Diet", "Canteen", "Hash"})
		for _, dish := range dishes {
			t.AppendRow(table.Row{dish.Name, dish.Price, dish.Diet, dish.Source, dish.Hash})
		}
		t.Render()
	},
}
