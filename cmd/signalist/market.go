package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalist/signalist/internal/polygon"
	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [symbols...]",
	Short: "Show recent news for symbols, or general market news",
	RunE: func(cmd *cobra.Command, args []string) error {
		symbols := utils.CleanSymbols(args)
		if w, _ := cmd.Flags().GetBool("watchlist"); w {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if symbols, err = store.Symbols(cmd.Context()); err != nil {
				return err
			}
		}

		articles, err := newMarket().News(cmd.Context(), symbols)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(articles)
		}

		if len(articles) == 0 {
			fmt.Println(mutedStyle.Render("No news available"))
			return nil
		}
		for _, a := range articles {
			when := ""
			if a.Datetime > 0 {
				when = time.Unix(a.Datetime, 0).In(utils.Eastern).Format("Jan 2 15:04 MST")
			}
			fmt.Println(headerStyle.Render(a.Headline))
			fmt.Println(mutedStyle.Render(fmt.Sprintf("%s · %s · %s", a.Source, a.Category, when)))
			if a.Summary != "" {
				fmt.Println(a.Summary)
			}
			fmt.Println(mutedStyle.Render(a.URL))
			fmt.Println()
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Bool("watchlist", false, "use the saved watchlist symbols")
}

// --- Search Command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search tickers; without a query, list popular stocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := polygon.WithSearchMemo(cmd.Context())
		results := newMarket().SearchStocks(ctx, strings.Join(args, " "))

		if store, err := openStore(); err == nil {
			results = markSaved(ctx, store, results)
			store.Close()
		}

		if jsonOutput(cmd) {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Println(mutedStyle.Render("No matches"))
			return nil
		}
		for _, r := range results {
			mark := " "
			if r.IsInWatchlist {
				mark = okStyle.Render("★")
			}
			fmt.Printf("%s %s %s %s\n", mark, symbolStyle.Render(r.Symbol), r.Name,
				mutedStyle.Render(fmt.Sprintf("(%s, %s)", r.Exchange, r.Type)))
		}
		return nil
	},
}

type symbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

func markSaved(ctx context.Context, store symbolLister, results []models.StockSearchResult) []models.StockSearchResult {
	symbols, err := store.Symbols(ctx)
	if err != nil {
		return results
	}
	saved := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		saved[s] = true
	}
	for i := range results {
		results[i].IsInWatchlist = saved[results[i].Symbol]
	}
	return results
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Show the latest price snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := utils.NormalizeSymbol(args[0])
		snap := newMarket().Snapshot(cmd.Context(), symbol)
		if jsonOutput(cmd) {
			return printJSON(snap)
		}
		if snap == nil {
			fmt.Println(mutedStyle.Render("No quote available for " + symbol))
			return nil
		}
		fmt.Printf("%s %.2f  %s  %s\n", symbolStyle.Render(symbol), snap.Price,
			signed("%.2f", snap.Change), signed("%.2f%%", snap.ChangePercent))
		return nil
	},
}

// --- Bars Command ---

var barsCmd = &cobra.Command{
	Use:   "bars [symbol]",
	Short: "Show historical OHLC bars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := utils.NormalizeSymbol(args[0])
		span, _ := cmd.Flags().GetString("timespan")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		var rng *models.DateRange
		if from != "" || to != "" {
			if !utils.ValidDate(from) || !utils.ValidDate(to) {
				return fmt.Errorf("--from and --to must both be YYYY-MM-DD")
			}
			rng = &models.DateRange{From: from, To: to}
		}

		bars := newMarket().Aggregates(cmd.Context(), symbol, models.ParseTimespan(span), rng)
		if jsonOutput(cmd) {
			return printJSON(bars)
		}
		if len(bars) == 0 {
			fmt.Println(mutedStyle.Render("No bars available for " + symbol))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-17s %10s %10s %10s %10s %14s", "Time", "Open", "High", "Low", "Close", "Volume")))
		for _, b := range bars {
			t := time.UnixMilli(b.Timestamp).In(utils.Eastern).Format("2006-01-02 15:04")
			fmt.Printf("%-17s %10.2f %10.2f %10.2f %10.2f %14.0f\n", t, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		return nil
	},
}

func init() {
	barsCmd.Flags().String("timespan", "day", "bar width: minute, hour, day, week, month")
	barsCmd.Flags().String("from", "", "start date YYYY-MM-DD (default: 30 days ago)")
	barsCmd.Flags().String("to", "", "end date YYYY-MM-DD (default: today)")
}

// --- Company Command ---

var companyCmd = &cobra.Command{
	Use:   "company [symbol]",
	Short: "Show the company profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := utils.NormalizeSymbol(args[0])
		d := newMarket().CompanyDetails(cmd.Context(), symbol)
		if jsonOutput(cmd) {
			return printJSON(d)
		}
		if d == nil {
			fmt.Println(mutedStyle.Render("No profile available for " + symbol))
			return nil
		}

		fmt.Println(titleStyle.Render(symbol + "  " + d.Name))
		if d.MarketCap > 0 {
			printField("Market cap", fmt.Sprintf("$%.2fB", d.MarketCap/1e9))
		}
		if d.Employees > 0 {
			printField("Employees", fmt.Sprintf("%d", d.Employees))
		}
		if d.ListDate != "" {
			printField("Listed", d.ListDate)
		}
		if d.Homepage != "" {
			printField("Homepage", d.Homepage)
		}
		if d.Description != "" {
			fmt.Println()
			fmt.Println(d.Description)
		}
		return nil
	},
}
