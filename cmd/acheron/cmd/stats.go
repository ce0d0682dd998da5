package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print queue depths",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := newBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		stats, err := backend.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("ready:        %d\n", stats.Ready)
		fmt.Printf("processing:   %d\n", stats.Processing)
		fmt.Printf("delayed:      %d\n", stats.Delayed)
		if dlqKey != "" {
			fmt.Printf("dead-letter:  %d\n", stats.DeadLettered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
