package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/hopscotch/service/temporal"
	"github.com/urfave/cli/v2"
	"go.temporal.io/sdk/client"
)

func scheduleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "temporal-host",
			Usage:   "Temporal server host:port",
			EnvVars: []string{"TEMPORAL_HOST"},
			Value:   "localhost:7233",
		},
		&cli.StringFlag{
			Name:    "temporal-namespace",
			Usage:   "Temporal namespace",
			EnvVars: []string{"TEMPORAL_NAMESPACE"},
			Value:   "default",
		},
		&cli.StringFlag{
			Name:    "task-queue",
			Usage:   "Task queue name",
			EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
			Value:   "hopscotch-trade-refresh",
		},
	}
}

// getScheduleClient connects to Temporal using the command's flags.
func getScheduleClient(c *cli.Context) (*temporal.Client, error) {
	logger := setupLogger(c.String("log-level"))
	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("task-queue"),
		logger,
	)
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-schedule",
		Usage:     "Create a Temporal schedule that refreshes a wallet's trades",
		ArgsUsage: "WALLET_ADDRESS REFRESH_INTERVAL",
		Flags:     scheduleFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires exactly two arguments: wallet-address refresh-interval")
			}
			address := c.Args().Get(0)
			interval, err := time.ParseDuration(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("invalid refresh-interval: %w", err)
			}

			tc, err := getScheduleClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.CreateWalletSchedule(context.Background(), address, interval); err != nil {
				return err
			}

			fmt.Printf("Schedule created for %s\n", address)
			fmt.Printf("  Interval: %v\n", interval)
			fmt.Printf("  Task Queue: %s\n", tc.TaskQueue())
			return nil
		},
	}
}

func upsertScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "upsert-schedule",
		Usage:     "Create or update the refresh schedule for a wallet",
		ArgsUsage: "WALLET_ADDRESS REFRESH_INTERVAL",
		Flags:     scheduleFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires exactly two arguments: wallet-address refresh-interval")
			}
			address := c.Args().Get(0)
			interval, err := time.ParseDuration(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("invalid refresh-interval: %w", err)
			}

			tc, err := getScheduleClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.UpsertWalletSchedule(context.Background(), address, interval); err != nil {
				return err
			}

			fmt.Printf("Schedule upserted for %s (every %v)\n", address, interval)
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-schedule",
		Usage:     "Delete the refresh schedule for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     scheduleFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet-address")
			}
			address := c.Args().Get(0)

			tc, err := getScheduleClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.DeleteWalletSchedule(context.Background(), address); err != nil {
				return err
			}

			fmt.Printf("Schedule deleted for %s\n", address)
			return nil
		},
	}
}

func listSchedulesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-schedules",
		Usage:   "List all Temporal schedules",
		Aliases: []string{"ls"},
		Flags:   scheduleFlags(),
		Action: func(c *cli.Context) error {
			tc, err := getScheduleClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := context.Background()
			iter, err := tc.SDKClient().ScheduleClient().List(ctx, client.ScheduleListOptions{
				PageSize: 100,
			})
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEDULE ID")
			count := 0
			for iter.HasNext() {
				schedule, err := iter.Next()
				if err != nil {
					return fmt.Errorf("failed to iterate schedules: %w", err)
				}
				fmt.Fprintf(w, "%s\n", schedule.ID)
				count++
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d schedules\n", count)
			return nil
		},
	}
}
