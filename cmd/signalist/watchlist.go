package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalist/signalist/pkg/utils"
)

var watchlistCmd = &cobra.Command{
	Use:     "watchlist",
	Aliases: []string{"wl"},
	Short:   "Manage the saved watchlist",
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved symbols",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(items)
		}
		if len(items) == 0 {
			fmt.Println(mutedStyle.Render("Watchlist is empty"))
			return nil
		}
		for _, it := range items {
			fmt.Printf("%s %s %s\n", symbolStyle.Render(it.Symbol), it.Company, mutedStyle.Render(it.AddedAt))
		}
		return nil
	},
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add [symbol] [company name]",
	Short: "Add a symbol",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := utils.NormalizeSymbol(args[0])
		if !utils.IsValidSymbol(symbol) {
			return fmt.Errorf("invalid symbol %q", args[0])
		}
		company := strings.Join(args[1:], " ")
		if company == "" {
			if d := newMarket().CompanyDetails(cmd.Context(), symbol); d != nil && d.Name != "" {
				company = d.Name
			} else {
				company = symbol
			}
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		added, err := store.Add(cmd.Context(), symbol, company)
		if err != nil {
			return err
		}
		if added {
			fmt.Println(okStyle.Render("Added ") + symbolStyle.Render(symbol) + company)
		} else {
			fmt.Println(mutedStyle.Render(symbol + " is already in the watchlist"))
		}
		return nil
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:     "remove [symbol]",
	Aliases: []string{"rm"},
	Short:   "Remove a symbol",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		symbol := utils.NormalizeSymbol(args[0])
		removed, err := store.Remove(cmd.Context(), symbol)
		if err != nil {
			return err
		}
		if removed {
			fmt.Println(okStyle.Render("Removed ") + symbol)
		} else {
			fmt.Println(mutedStyle.Render(symbol + " was not in the watchlist"))
		}
		return nil
	},
}

func init() {
	watchlistCmd.AddCommand(watchlistListCmd, watchlistAddCmd, watchlistRemoveCmd)
}
