package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session participation commands",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionJoinCmd())
	cmd.AddCommand(newSessionSlotsCmd())
	cmd.AddCommand(newSessionRefreshCmd())
	cmd.AddCommand(newSessionDetectorCmd())
	cmd.AddCommand(newSessionExtractionCmd())
	cmd.AddCommand(newSessionClaimCmd())
	cmd.AddCommand(newSessionDeclineCmd())
	cmd.AddCommand(newSessionTickCmd())

	return cmd
}

func sessionPath(id, suffix string) string {
	return fmt.Sprintf("/api/v1/sessions/%s%s", id, suffix)
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []SessionSummary

			if err := client.Get("/api/v1/sessions", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show your view of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionView

			if err := client.Get(sessionPath(args[0], ""), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <id>",
		Short: "Enter a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(sessionPath(args[0], "/join"), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Joined session " + args[0])
			return nil
		},
	}
}

func newSessionSlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots <id> <card-id|-> [card-id|-]...",
		Short: "Commit cards to battle slots in order; '-' leaves a slot empty",
		Args:  cobra.RangeArgs(2, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := make([]string, 0, len(args)-1)
			for _, a := range args[1:] {
				if a == "-" {
					a = ""
				}
				slots = append(slots, a)
			}

			var result Slots
			if err := client.Put(sessionPath(args[0], "/slots"), map[string][]string{"slots": slots}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Replace your standard cards (once per session)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Hand

			if err := client.Post(sessionPath(args[0], "/refresh"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionDetectorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detector <id>",
		Short: "Count your groupmates' special cards (once per session)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Detection

			if err := client.Post(sessionPath(args[0], "/detector"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionExtractionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extraction <id>",
		Short: "Show your pending extraction offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ExtractionOffer

			if err := client.Get(sessionPath(args[0], "/extraction"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id> <card-id>",
		Short: "Take a card from a defeated groupmate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ExtractionCandidate

			if err := client.Post(sessionPath(args[0], "/extraction/claim"), map[string]string{"card_id": args[1]}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionDeclineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <id>",
		Short: "Give up your extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(sessionPath(args[0], "/extraction/decline"), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Extraction declined")
			return nil
		},
	}
}

func newSessionTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick <id>",
		Short: "Advance the session if its phase has run out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Advanced

			if err := client.Post(sessionPath(args[0], "/tick"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
