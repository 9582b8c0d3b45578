package commands

import (
	"errors"

	"lunchbot/lib/serviceutil"
	"lunchbot/lib/timezone"
	"lunchbot/services/lunchbot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyDays *int

func init() {
	historyDays = historyCmd.Flags().Int("days", 7, "How many days to list, including today.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--days <n>]",
	Short: "Lists the dishes published in the last days.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		if !config.History.Enabled() {
			serviceutil.Fatal("failed to open history", errors.New("neither HISTORY_DB_FILE nor HISTORY_DB_URL is set"))
		}

		database, err := config.History.OpenDB()
		if err != nil {
			serviceutil.Fatal("failed to open history", err)
		}
		defer database.Close()

		history, err := lunchbot.OpenHistory(cmd.Context(), database)
		if err != nil {
			serviceutil.Fatal("failed to open history", err)
		}
		entries, err := history.List(cmd.Context(), timezone.Now(), *historyDays)
		if err != nil {
			serviceutil.Fatal("failed to list history", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Day", "Dish", "Canteen", "Price", "Diet", "Image"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.Day.Format("2006-01-02"),
				entry.Dish.Name,
				entry.Dish.Source,
				entry.Dish.Price,
				entry.Dish.Diet,
				entry.Dish.GenerationTag,
			})
		}
		t.Render()
	},
}
