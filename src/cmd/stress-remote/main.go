package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-label-overlay/src/config"
	"screen-label-overlay/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

type counts struct {
	ok, rejected, missing, failed int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-remote",
		Short:         "Stress test command delegation to a running overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.command {
			case singleinstance.CmdStatus, singleinstance.CmdToggle:
			default:
				return fmt.Errorf("unsupported command %q (use status or toggle)", opts.command)
			}
			if cfg, err := config.Load(); err == nil {
				singleinstance.SetPortRange(cfg.PortStart, cfg.PortEnd)
			}
			c := runWithOptions(*opts, singleinstance.NewClient)
			fmt.Fprintf(cmd.OutOrStdout(), "launched=%d ok=%d rejected=%d missing=%d err=%d\n",
				opts.n, c.ok, c.rejected, c.missing, c.failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.command, "command", singleinstance.CmdStatus, "status|toggle")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(io.Discard)

	return cmd
}

func runWithOptions(opts stressOptions, newClient func() singleinstance.Client) counts {
	var wg sync.WaitGroup
	var c counts

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, reply, err := newClient().Send(ctx, singleinstance.Request{Command: opts.command})
			switch {
			case err != nil:
				atomic.AddInt32(&c.failed, 1)
			case !delegated:
				atomic.AddInt32(&c.missing, 1)
			case !reply.OK:
				atomic.AddInt32(&c.rejected, 1)
			default:
				atomic.AddInt32(&c.ok, 1)
			}
		}()
	}
	wg.Wait()
	return c
}
