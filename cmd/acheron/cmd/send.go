package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sendDelay time.Duration

var sendCmd = &cobra.Command{
	Use:   "send <payload>",
	Short: "Enqueue a payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := newBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		producer := backend.Producer()
		ctx := cmd.Context()

		if sendDelay > 0 {
			if err := producer.SendScheduled(ctx, []byte(args[0]), sendDelay); err != nil {
				return err
			}
			fmt.Printf("Scheduled on %s in %s\n", queueKey, sendDelay)
			return nil
		}

		if err := producer.SendRaw(ctx, []byte(args[0])); err != nil {
			return err
		}
		fmt.Printf("Sent to %s\n", queueKey)
		return nil
	},
}

func init() {
	sendCmd.Flags().DurationVar(&sendDelay, "delay", 0, "Deliver after this delay instead of immediately")
	rootCmd.AddCommand(sendCmd)
}
