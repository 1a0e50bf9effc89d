package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/droplog/internal/security/capability"
)

// MintOptions holds flags for the mint command.
type MintOptions struct {
	*RootOptions
	Secret string
	Scheme string
	Save   bool
}

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mint <id>",
		Short: "Mint a bearer offline from the server secret",
		Long: `Mint a bearer offline from the server secret.

Anyone holding the secret can produce a valid bearer for any namespace,
including ones already claimed. The server is not contacted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := namespaceArg(args)
			if err != nil {
				return err
			}
			if opts.Secret == "" {
				return errors.New("secret required: pass --secret or set SECRET_KEY")
			}
			codec, err := capability.New(opts.Scheme, opts.Secret)
			if err != nil {
				return err
			}
			tok, err := codec.Issue(id)
			if err != nil {
				return fmt.Errorf("mint: %w", err)
			}
			if opts.Save {
				if err := opts.tokens().Save(id, tok); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, map[string]string{"id": id, "bearer": tok}, func(w io.Writer) {
				fmt.Fprintln(w, tok)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", os.Getenv("SECRET_KEY"), "server secret")
	cmd.Flags().StringVar(&opts.Scheme, "scheme", envOr("TOKEN_SCHEME", capability.SchemeSealed), "token scheme (sealed|jwt)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "save the bearer to the token directory")

	return cmd
}
