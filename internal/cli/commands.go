package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewNewCommand creates the new command.
func NewNewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Print a fresh namespace identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.NewString()
			return writeOutput(cmd.OutOrStdout(), opts.Format, map[string]string{"id": id}, func(w io.Writer) {
				fmt.Fprintln(w, id)
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show whether a namespace exists and whether you own it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := namespaceArg(args)
			if err != nil {
				return err
			}
			// a missing bearer just means "not owner"
			tok := opts.Token
			if tok == "" {
				tok, _ = opts.tokens().Load(id)
			}

			st, err := opts.client().Status(cmd.Context(), id, tok)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, st, func(w io.Writer) {
				fmt.Fprintf(w, "exists:            %t\n", st.Exists)
				fmt.Fprintf(w, "owner:             %t\n", st.IsOwner)
				fmt.Fprintf(w, "can claim bearer:  %t\n", st.CanGenerateBearer)
			})
		},
	}
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id>",
		Short: "Obtain and save a bearer for an unused namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := namespaceArg(args)
			if err != nil {
				return err
			}
			tok, err := opts.client().Claim(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := opts.tokens().Save(id, tok); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, map[string]string{"id": id, "bearer": tok}, func(w io.Writer) {
				fmt.Fprintln(w, tok)
			})
		},
	}
}

// PostOptions holds flags for the post command.
type PostOptions struct {
	*RootOptions
	JSON        bool
	ContentType string
}

// NewPostCommand creates the post command.
func NewPostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "post <id> [text...]",
		Short: "Append content to a namespace you own",
		Long: `Append content to a namespace you own.

Content is the remaining arguments joined by spaces, or stdin when none
are given. If the command fails after the request was sent the record
may still have been stored; check with "droplog list" before retrying.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := namespaceArg(args)
			if err != nil {
				return err
			}
			tok, err := opts.bearerFor(id)
			if err != nil {
				return err
			}

			var body io.Reader = cmd.InOrStdin()
			if len(args) > 1 {
				body = strings.NewReader(strings.Join(args[1:], " "))
			}
			contentType := opts.ContentType
			if opts.JSON {
				contentType = "application/json"
			}

			rec, err := opts.client().Post(cmd.Context(), id, tok, contentType, body)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, rec, func(w io.Writer) {
				fmt.Fprintf(w, "#%d at %s\n", rec.ID, rec.Created)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "send content as application/json")
	cmd.Flags().StringVar(&opts.ContentType, "content-type", "text/plain", "content type of the body")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <id>",
		Short: "Show a namespace's records, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := namespaceArg(args)
			if err != nil {
				return err
			}
			recs, err := opts.client().List(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, recs, func(w io.Writer) {
				if len(recs) == 0 {
					fmt.Fprintln(w, "no records")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tCONTENT")
				for _, r := range recs {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Created, oneLine(r.Content, 60))
				}
				tw.Flush()
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Destroy a namespace you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := namespaceArg(args)
			if err != nil {
				return err
			}
			tok, err := opts.bearerFor(id)
			if err != nil {
				return err
			}
			if err := opts.client().Delete(cmd.Context(), id, tok); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, map[string]bool{"success": true}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted %s\n", id)
			})
		},
	}
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
