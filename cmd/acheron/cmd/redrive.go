package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var redriveCmd = &cobra.Command{
	Use:   "redrive",
	Short: "Move dead-lettered payloads back onto the main queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dlqKey == "" {
			return fmt.Errorf("redrive requires --dlq")
		}

		backend, err := newBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		if err := backend.Producer().RedriveDLQ(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Redrove %s onto %s\n", dlqKey, queueKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redriveCmd)
}
