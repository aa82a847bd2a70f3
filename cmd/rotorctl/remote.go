package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/rpc"
)

func newRemoteCmd(a *app) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Call a running rotord over gRPC",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "rotord address (default from config)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per call timeout")

	dial := func(cmd *cobra.Command) (*rpc.Client, func(), context.Context, error) {
		target := strings.TrimSpace(addr)
		if target == "" {
			cfg, err := a.config()
			if err != nil {
				return nil, nil, nil, err
			}
			target = cfg.ServerAddr
		}
		conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("dial %s: %w", target, err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		cleanup := func() {
			cancel()
			_ = conn.Close()
		}
		return rpc.NewClient(conn), cleanup, ctx, nil
	}

	message := func(dir enigma.Direction) *cobra.Command {
		var keys keyFlags
		c := &cobra.Command{
			Use:   dir.String() + " TEXT...",
			Short: "Remote " + dir.String(),
			Args: func(cmd *cobra.Command, args []string) error {
				if len(args) == 0 {
					return usagef("%s needs text to process", dir)
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				if keys.profile == "" && keys.offsets == "" {
					return usagef("either --profile or --offsets is required")
				}
				req := rpc.MessageRequest{
					Input:     strings.Join(args, " "),
					Profile:   keys.profile,
					Alphabet:  keys.alphabet,
					Plugboard: keys.plugboard,
				}
				if keys.profile == "" {
					offsets, err := enigma.ParseOffsets(keys.offsets)
					if err != nil {
						return err
					}
					req.Offsets = offsets
				}

				client, cleanup, ctx, err := dial(cmd)
				if err != nil {
					return err
				}
				defer cleanup()

				call := client.Encode
				if dir == enigma.Decrypt {
					call = client.Decode
				}
				resp, err := call(ctx, req)
				if err != nil {
					if errors.Is(err, enigma.ErrDesynchronized) && resp.Output != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "partial output: %s\n", resp.Output)
					}
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
				return err
			},
		}
		keys.register(c)
		return c
	}

	opsCmd := &cobra.Command{
		Use:   "ops",
		Short: "List the operations offered by the server",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, ctx, err := dial(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			ops, err := client.ListOperations(ctx)
			if err != nil {
				return err
			}
			printOperations(cmd.OutOrStdout(), ops)
			return nil
		},
	}

	cmd.AddCommand(message(enigma.Encrypt), message(enigma.Decrypt), opsCmd)
	return cmd
}
