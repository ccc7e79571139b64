package cli

import (
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Session control commands (elevated identities only)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create an idle session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionSummary

			if err := client.Post("/api/v1/sessions", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	})

	for _, action := range []struct{ name, short string }{
		{"start", "Start an idle session"},
		{"pause", "Freeze the current phase timer"},
		{"resume", "Resume a paused phase"},
		{"reset", "Return a session to idle"},
	} {
		cmd.AddCommand(newAdminActionCmd(action.name, action.short))
	}

	return cmd
}

func newAdminActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionSummary

			if err := client.Post(sessionPath(args[0], "/"+action), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
