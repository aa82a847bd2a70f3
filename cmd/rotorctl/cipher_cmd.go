package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/enigma"
)

// keyFlags are the key selection flags shared by encode, decode and remote.
type keyFlags struct {
	profile   string
	alphabet  string
	offsets   string
	plugboard string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "stored key profile to use")
	cmd.Flags().StringVarP(&f.alphabet, "alphabet", "a", "", "alphabet: upper, extended, printable or BASE:SIZE (default from config)")
	cmd.Flags().StringVarP(&f.offsets, "offsets", "k", "", "comma separated rotor offsets, e.g. 5,12,1")
	cmd.Flags().StringVarP(&f.plugboard, "plugboard", "b", "", "plugboard pairs as consecutive characters, e.g. AQBW")
}

func (f *keyFlags) request(input string) (cipher.Request, error) {
	if f.profile == "" && f.offsets == "" {
		return cipher.Request{}, usagef("either --profile or --offsets is required")
	}
	req := cipher.Request{Input: input, Profile: f.profile}
	if f.profile != "" {
		return req, nil
	}
	req.Params = map[string]interface{}{cipher.ParamOffsets: f.offsets}
	if f.alphabet != "" {
		req.Params[cipher.ParamAlphabet] = f.alphabet
	}
	if f.plugboard != "" {
		req.Params[cipher.ParamPlugboard] = f.plugboard
	}
	return req, nil
}

type messageOptions struct {
	keys keyFlags
	in   string
	out  string
}

func newEncodeCmd(a *app) *cobra.Command {
	return newMessageCmd(a, enigma.Encrypt, "encode [text...]", "Encipher text, a file or stdin")
}

func newDecodeCmd(a *app) *cobra.Command {
	return newMessageCmd(a, enigma.Decrypt, "decode [text...]", "Decipher text, a file or stdin")
}

func newMessageCmd(a *app, dir enigma.Direction, use, short string) *cobra.Command {
	opts := &messageOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Text given as arguments is joined with single spaces and printed with a
trailing newline. Without arguments the input is streamed rune by rune from
--in (or stdin) to --out (or stdout) unchanged in length.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				if opts.in != "" {
					return usagef("text arguments and --in are mutually exclusive")
				}
				return runText(cmd, a, dir, opts, strings.Join(args, " "))
			}
			return runStream(cmd, a, dir, opts)
		},
	}
	opts.keys.register(cmd)
	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "read input from file instead of stdin")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write output to file instead of stdout")
	return cmd
}

func runText(cmd *cobra.Command, a *app, dir enigma.Direction, opts *messageOptions, text string) error {
	req, err := opts.keys.request(text)
	if err != nil {
		return err
	}
	svc, err := a.cipherService()
	if err != nil {
		return err
	}
	run := svc.Encode
	if dir == enigma.Decrypt {
		run = svc.Decode
	}
	res, err := run(cmd.Context(), req)
	if err != nil {
		if errors.Is(err, enigma.ErrDesynchronized) && res.Output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "partial output: %s\n", res.Output)
		}
		return err
	}
	return writeOutput(cmd, opts.out, res.Output+"\n")
}

func runStream(cmd *cobra.Command, a *app, dir enigma.Direction, opts *messageOptions) (err error) {
	req, err := opts.keys.request("")
	if err != nil {
		return err
	}
	svc, err := a.cipherService()
	if err != nil {
		return err
	}

	var src io.Reader = cmd.InOrStdin()
	if opts.in != "" {
		f, err := os.Open(opts.in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	}
	var dst io.Writer = cmd.OutOrStdout()
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		dst = f
	}

	res, err := svc.Transform(cmd.Context(), req, dir, dst, src)
	if err != nil {
		return fmt.Errorf("%s failed after %d symbols: %w", dir, res.Enciphered+res.Passthrough, err)
	}
	return nil
}

func writeOutput(cmd *cobra.Command, path, data string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), data)
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}
