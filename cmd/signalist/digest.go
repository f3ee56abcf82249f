package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Daily news digest",
}

// digest run ignores digest.enabled so the job can be tried by hand.
var digestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the news digest once and print the summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		job := newDigestJob(newMarket(), store, newLLM())
		res, err := job.Run(cmd.Context())
		if jsonOutput(cmd) {
			if perr := printJSON(res); perr != nil {
				return perr
			}
			return err
		}
		if err != nil {
			return err
		}

		if !res.Success {
			fmt.Println(mutedStyle.Render(res.Message))
			return nil
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("Market digest (%d articles)", res.Articles)))
		fmt.Println(res.Summary)
		return nil
	},
}

func init() {
	digestCmd.AddCommand(digestRunCmd)
}
