package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tartarus-sandbox/acheron/pkg/hermes"
	"github.com/tartarus-sandbox/acheron/pkg/redisq"
)

var (
	cfgFile        string
	dsn            string
	queueKey       string
	ackDeadlineMs  int
	dlqKey         string
	maxReceives    int
	reinsertOnNack bool
)

var rootCmd = &cobra.Command{
	Use:   "acheron",
	Short: "Acheron CLI",
	Long:  `A developer-facing tool to inspect and exercise Acheron queues.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Values from the config file fill in the dsn, queue, dlq and
		// ack-deadline-ms flags when they are left at their defaults.
		// max-receives and reinsert-on-nack are taken from flags only.
		if !cmd.Flags().Changed("dsn") {
			if v := viper.GetString("dsn"); v != "" {
				dsn = v
			}
		}
		if !cmd.Flags().Changed("queue") {
			if v := viper.GetString("queue"); v != "" {
				queueKey = v
			}
		}
		if !cmd.Flags().Changed("dlq") {
			if v := viper.GetString("dlq"); v != "" {
				dlqKey = v
			}
		}
		if !cmd.Flags().Changed("ack-deadline-ms") {
			if v := viper.GetInt("ack-deadline-ms"); v != 0 {
				ackDeadlineMs = v
			}
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.acheron/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "localhost:6379", "Redis address or redis:// URL")
	rootCmd.PersistentFlags().StringVar(&queueKey, "queue", "acheron", "Queue key")
	rootCmd.PersistentFlags().IntVar(&ackDeadlineMs, "ack-deadline-ms", 30_000, "Visibility timeout in milliseconds")
	rootCmd.PersistentFlags().StringVar(&dlqKey, "dlq", "", "Dead-letter queue key (empty disables escalation)")
	rootCmd.PersistentFlags().IntVar(&maxReceives, "max-receives", 5, "Delivery attempts before dead-lettering")
	rootCmd.PersistentFlags().BoolVar(&reinsertOnNack, "reinsert-on-nack", false, "Requeue nacked messages immediately")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".acheron"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func newBackend() (*redisq.Backend, error) {
	cfg := redisq.Config{
		DSN:            dsn,
		QueueKey:       queueKey,
		AckDeadline:    time.Duration(ackDeadlineMs) * time.Millisecond,
		ReinsertOnNack: reinsertOnNack,
	}
	if dlqKey != "" {
		cfg.DLQ = &redisq.DLQConfig{QueueKey: dlqKey, MaxReceives: maxReceives}
	}
	return redisq.New(cfg, redisq.WithLogger(hermes.NewSlogAdapter()))
}
