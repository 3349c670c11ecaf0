package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"memorial-narrator/internal/domain"
)

const listExcerptRunes = 60

func (a *app) memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Add, list, and remove memories",
	}
	cmd.AddCommand(a.memoryAddCmd(), a.memoryListCmd(), a.memoryRmCmd())
	return cmd
}

func (a *app) memoryAddCmd() *cobra.Command {
	var content, name, relationship, period, emotion string
	cmd := &cobra.Command{
		Use:   "add <memorial-id>",
		Short: "Contribute a memory to a memorial",
		Example: `  memorialctl memory add 01J... --name Chris --relationship cousin --emotion funny \
    --content "He once tried to fix the kitchen sink and flooded the whole house."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("--content is required")
			}
			if emotion != "" && domain.ParseEmotion(emotion) == "" {
				return fmt.Errorf("unknown emotion %q", emotion)
			}
			return a.withStore(commandContext(cmd), func(store Store) error {
				m, err := store.AddMemory(commandContext(cmd), domain.Memory{
					MemorialID:      args[0],
					ContributorID:   a.userID(),
					ContributorName: strings.TrimSpace(name),
					Relationship:    strings.TrimSpace(relationship),
					TimePeriod:      strings.TrimSpace(period),
					Emotion:         domain.Emotion(emotion),
					Content:         strings.TrimSpace(content),
				})
				if err != nil {
					return fmt.Errorf("memorial %s: %w", args[0], err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), m.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "The memory itself")
	cmd.Flags().StringVar(&name, "name", "", "Contributor display name")
	cmd.Flags().StringVar(&relationship, "relationship", "", "Contributor's relationship to the person")
	cmd.Flags().StringVar(&period, "period", "", "When it happened, free text")
	cmd.Flags().StringVar(&emotion, "emotion", "", "joyful, funny, thoughtful, bittersweet, or sad")
	return cmd
}

func (a *app) memoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <memorial-id>",
		Short: "List a memorial's memories, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(commandContext(cmd), func(store Store) error {
				memories, err := store.ListByMemorial(commandContext(cmd), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(memories) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("no memories"))
					return nil
				}
				for _, m := range memories {
					who := m.ContributorName
					if who == "" {
						who = orUnknown(m.Relationship)
					}
					tag := string(m.Emotion)
					if tag == "" {
						tag = "-"
					}
					fmt.Fprintf(out, "%s  %-12s  %-11s  %s\n", m.ID, who, tag, excerpt(m.Content, listExcerptRunes))
				}
				return nil
			})
		},
	}
}

func (a *app) memoryRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <memory-id>",
		Short: "Remove a memory you contributed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(commandContext(cmd), func(store Store) error {
				svc, err := a.service(cmd, store, true)
				if err != nil {
					return err
				}
				if err := svc.DeleteMemory(commandContext(cmd), args[0], ""); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("removed "+args[0]))
				return nil
			})
		},
	}
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
