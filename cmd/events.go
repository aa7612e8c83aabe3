/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sorynturda/link-sharing/internal/mq"
	"github.com/sorynturda/link-sharing/types"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect activity events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print activity events as they arrive",
	Long: `Subscribes to the activity channel of the configured broker and prints
one JSON object per event until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		queue, err := mq.Open(cmd.Context(), a.cfg.MQ)
		if err != nil {
			return err
		}
		defer queue.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		activity := mq.NewActivity(queue, a.cfg.MQ.Channel)
		err = activity.Tail(cmd.Context(), func(ev types.ActivityEvent) error {
			return enc.Encode(ev)
		})
		if errors.Is(err, mq.ErrNoBroker) {
			return fmt.Errorf("%w: set LINKSHARE_MQ_BACKEND to rabbitmq or pubsub", err)
		}
		if cmd.Context().Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
