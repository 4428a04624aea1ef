package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livetemplate/scrollfollow"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <file.md>",
		Short: "Check that source sections and preview groups agree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showHTML, _ := cmd.Flags().GetBool("html")

			sess, err := openSession(cmd, args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			if err := sess.Err(); err != nil {
				var ce *scrollfollow.ConsistencyError
				if errors.As(err, &ce) {
					fmt.Fprint(out, ce.Format())
				}
				return err
			}

			fmt.Fprintf(out, "✅ %d sections matched in %s\n", len(sess.Sections()), args[0])
			if showHTML {
				html, err := sess.HTML()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s", html)
			}
			return nil
		},
	}
	cmd.Flags().Bool("html", false, "Print the sectioned preview HTML")
	return cmd
}
