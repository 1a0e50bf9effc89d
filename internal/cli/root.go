package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/droplog/internal/domain"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server   string
	Token    string
	TokenDir string
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the droplog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "droplog",
		Short: "droplog - anonymous drop-box client",
		Long: `Talk to a droplog server: claim a namespace, post to it, read it back.

Bearers returned by "claim" are kept in the token directory and used
automatically by "post" and "delete" for the same namespace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("DROPLOG_API", "http://localhost:3001"), "droplog server URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("DROPLOG_TOKEN"), "bearer token (overrides the saved one)")
	cmd.PersistentFlags().StringVar(&opts.TokenDir, "token-dir", DefaultTokenDir(), "directory holding saved bearers")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewClaimCommand(opts))
	cmd.AddCommand(NewPostCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewMintCommand(opts))

	return cmd
}

func (o *RootOptions) client() *Client {
	return NewClient(o.Server)
}

func (o *RootOptions) tokens() *TokenStore {
	return NewTokenStore(o.TokenDir)
}

// bearerFor prefers --token and falls back to the saved bearer
func (o *RootOptions) bearerFor(id string) (string, error) {
	if o.Token != "" {
		return o.Token, nil
	}
	tok, err := o.tokens().Load(id)
	if err != nil {
		return "", fmt.Errorf("load saved token: %w", err)
	}
	if tok == "" {
		return "", fmt.Errorf("no bearer for %s: run \"droplog claim %s\" or pass --token", id, id)
	}
	return tok, nil
}

func namespaceArg(args []string) (string, error) {
	if !domain.IsNamespaceID(args[0]) {
		return "", fmt.Errorf("%q: %w", args[0], domain.ErrInvalidFormat)
	}
	return args[0], nil
}

func writeOutput(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
