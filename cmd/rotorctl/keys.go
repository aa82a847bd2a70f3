package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored key profiles",
	}

	var add struct {
		keyFlags
		description string
		tags        []string
	}
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Store or replace a key profile",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if add.offsets == "" {
				return usagef("--offsets is required")
			}
			offsets, err := enigma.ParseOffsets(add.offsets)
			if err != nil {
				return err
			}
			alphabet := add.alphabet
			if alphabet == "" {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				alphabet = cfg.DefaultAlphabet
			}
			keys, err := a.keyring()
			if err != nil {
				return err
			}
			p := &keyring.Profile{
				Name:        args[0],
				Description: add.description,
				Tags:        add.tags,
				Alphabet:    alphabet,
				Offsets:     offsets,
				Plugboard:   add.plugboard,
			}
			if err := keys.Save(p); err != nil {
				return err
			}
			a.auditKeyring("save", p.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&add.alphabet, "alphabet", "a", "", "alphabet: upper, extended, printable or BASE:SIZE (default from config)")
	addCmd.Flags().StringVarP(&add.offsets, "offsets", "k", "", "comma separated rotor offsets")
	addCmd.Flags().StringVarP(&add.plugboard, "plugboard", "b", "", "plugboard pairs")
	addCmd.Flags().StringVarP(&add.description, "description", "d", "", "free text description")
	addCmd.Flags().StringSliceVarP(&add.tags, "tag", "t", nil, "tag, may be repeated")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.keyring()
			if err != nil {
				return err
			}
			printProfiles(cmd.OutOrStdout(), keys.List())
			return nil
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find profiles by name, description or tag",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.keyring()
			if err != nil {
				return err
			}
			printProfiles(cmd.OutOrStdout(), keys.Search(args[0]))
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a profile as YAML",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.keyring()
			if err != nil {
				return err
			}
			p, err := keys.Get(args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(p)
		},
	}

	rmCmd := &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"delete"},
		Short:   "Delete a profile",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.keyring()
			if err != nil {
				return err
			}
			if err := keys.Delete(args[0]); err != nil {
				return err
			}
			a.auditKeyring("delete", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "deleted profile %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, searchCmd, showCmd, rmCmd)
	return cmd
}

func printProfiles(out io.Writer, profiles []*keyring.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(out, "no profiles")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tALPHABET\tROTORS\tTAGS\tDESCRIPTION")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.Name, p.Alphabet, len(p.Offsets), strings.Join(p.Tags, ","), p.Description)
	}
	_ = tw.Flush()
}

func (a *app) auditKeyring(action, name string) {
	logger, err := a.auditLogger()
	if err != nil {
		return
	}
	_ = logger.Emit(logging.AuditEvent{
		EventType: logging.EventKeyringChange,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"action": action, "profile": name},
	})
}
