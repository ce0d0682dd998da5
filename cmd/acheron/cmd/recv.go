package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	recvCount   int
	recvWorkers int
	recvNack    bool
	recvTimeout time.Duration
)

var recvCmd = &cobra.Command{
	Use:   "recv",
	Short: "Receive and print messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := newBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		ctx := cmd.Context()
		if recvTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, recvTimeout)
			defer cancel()
		}

		if recvWorkers < 1 {
			recvWorkers = 1
		}

		work := make(chan int)
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < recvWorkers; w++ {
			g.Go(func() error {
				consumer := backend.Consumer()
				for range work {
					d, err := consumer.Receive(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("%s\n", d.Payload())
					if recvNack {
						if err := d.Nack(ctx); err != nil {
							return err
						}
						continue
					}
					if err := d.Ack(ctx); err != nil {
						return err
					}
				}
				return nil
			})
		}

		for i := 0; i < recvCount; i++ {
			select {
			case work <- i:
			case <-ctx.Done():
				i = recvCount
			}
		}
		close(work)

		return g.Wait()
	},
}

func init() {
	recvCmd.Flags().IntVar(&recvCount, "count", 1, "Number of messages to receive")
	recvCmd.Flags().IntVar(&recvWorkers, "workers", 1, "Concurrent consumers")
	recvCmd.Flags().BoolVar(&recvNack, "nack", false, "Nack instead of acking")
	recvCmd.Flags().DurationVar(&recvTimeout, "timeout", 0, "Give up after this long (0 waits forever)")
	rootCmd.AddCommand(recvCmd)
}
