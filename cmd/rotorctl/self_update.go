package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RowanDark/rotor/internal/updater"
)

func newSelfUpdateCmd(a *app) *cobra.Command {
	var (
		channel  string
		rollback bool
		storeDir string
	)
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update rotorctl to the newest signed release",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			store, err := updater.NewStore(storeDir)
			if err != nil {
				return err
			}
			logger, err := a.auditLogger()
			if err != nil {
				return err
			}
			u := &updater.Updater{
				Store:   store,
				BaseURL: cfg.UpdateBaseURL,
				Version: version,
				Logger:  logger,
			}
			out := cmd.OutOrStdout()

			if rollback {
				res, err := u.Rollback(cmd.Context(), true)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				fmt.Fprintf(out, "rolled back rotorctl to %s\n", res.To)
				return nil
			}

			st, err := store.Load()
			if err != nil {
				return err
			}
			opts := updater.Options{Channel: st.Channel, Persist: true}
			if channel != "" {
				ch, err := updater.ParseChannel(channel)
				if err != nil {
					return usageError{err}
				}
				opts = updater.Options{Channel: ch, Persist: false}
			}

			res, err := u.Update(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}
			switch {
			case res.Skipped:
				fmt.Fprintf(out, "rotorctl %s is already the newest build on the %s channel\n", res.From, res.Channel)
			case res.Delta:
				fmt.Fprintf(out, "updated rotorctl %s -> %s on the %s channel (delta)\n", res.From, res.To, res.Channel)
			default:
				fmt.Fprintf(out, "updated rotorctl %s -> %s on the %s channel\n", res.From, res.To, res.Channel)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel for this run only (stable or beta)")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "restore the binary replaced by the last update")
	cmd.Flags().StringVar(&storeDir, "state-dir", "", "updater state directory (default ~/.rotor/updater)")
	return cmd
}
