package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/rotor/internal/cipher"
)

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operations usable in pipelines",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			printOperations(cmd.OutOrStdout(), cipher.DescribeOperations())
			return nil
		},
	}
}

func printOperations(out io.Writer, ops []cipher.OperationInfo) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tREVERSIBLE\tDESCRIPTION")
	for _, op := range ops {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", op.Name, op.Type, op.Reversible, op.Description)
	}
	_ = tw.Flush()
}

func newPipelineCmd(a *app) *cobra.Command {
	var (
		file    string
		reverse bool
	)
	cmd := &cobra.Command{
		Use:   "pipeline -f PIPELINE.yaml [text...]",
		Short: "Run a YAML pipeline of operations over text or stdin",
		Long: `Run a pipeline file such as:

  reversible: true
  operations:
    - name: rotor_encode
      parameters: {profile: daily}
    - name: base64_encode

With --reverse the inverse pipeline is run instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return usagef("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read pipeline: %w", err)
			}
			var p cipher.Pipeline
			if err := yaml.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("parse pipeline %s: %w", file, err)
			}
			if len(p.Operations) == 0 {
				return fmt.Errorf("pipeline %s has no operations", file)
			}
			if reverse {
				rev, err := p.Reverse()
				if err != nil {
					return err
				}
				p = *rev
			}

			var input []byte
			if len(args) > 0 {
				input = []byte(strings.Join(args, " "))
			} else {
				input, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			}

			svc, err := a.cipherService()
			if err != nil {
				return err
			}
			out, err := svc.RunPipeline(cmd.Context(), &p, input)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "pipeline definition (YAML)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "run the inverse pipeline")
	return cmd
}
