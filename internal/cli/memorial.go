package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"memorial-narrator/internal/domain"
	"memorial-narrator/internal/usecase"
)

func (a *app) memorialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memorial",
		Short: "Create, inspect, and configure memorials",
	}
	cmd.AddCommand(a.memorialCreateCmd(), a.memorialListCmd(), a.memorialShowCmd(), a.memorialVoiceCmd())
	return cmd
}

func (a *app) memorialCreateCmd() *cobra.Command {
	var name, born, passed, tone, style string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a memorial owned by the acting user",
		Example: `  memorialctl memorial create --name "Walter Hughes" --born 1941 --passed 2023 --tone humorous
  memorialctl memorial create --name "Ada" --style poetic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			m := domain.Memorial{
				FullName:   strings.TrimSpace(name),
				BirthDate:  strings.TrimSpace(born),
				PassedDate: strings.TrimSpace(passed),
				OwnerID:    a.userID(),
			}
			if tone != "" {
				t, ok := domain.LookupTone(tone)
				if !ok {
					return fmt.Errorf("unknown tone %q (choose from %s)", tone, joinTones())
				}
				m.Tone = t
			}
			if style != "" {
				s, ok := domain.LookupStyle(style)
				if !ok {
					return fmt.Errorf("unknown style %q (choose from %s)", style, joinStyles())
				}
				m.Style = s
			}
			return a.withStore(commandContext(cmd), func(store Store) error {
				created, err := store.CreateMemorial(commandContext(cmd), m)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name of the person remembered")
	cmd.Flags().StringVar(&born, "born", "", "Birth date, free text")
	cmd.Flags().StringVar(&passed, "passed", "", "Date of passing, free text")
	cmd.Flags().StringVar(&tone, "tone", "", "Narrative tone: "+joinTones())
	cmd.Flags().StringVar(&style, "style", "", "Narrative style: "+joinStyles())
	return cmd
}

func (a *app) memorialListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memorials owned by the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner := a.userID()
			if all {
				owner = ""
			}
			return a.withStore(commandContext(cmd), func(store Store) error {
				lister, ok := store.(memorialLister)
				if !ok {
					return fmt.Errorf("memorial list is only available on the local database")
				}
				memorials, err := lister.ListMemorials(commandContext(cmd), owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(memorials) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("no memorials"))
					return nil
				}
				for _, m := range memorials {
					fmt.Fprintf(out, "%s  %s  %s/%s  %d memories\n", m.ID, m.DisplayName(), m.Tone, m.Style, m.MemoryCount)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include memorials owned by other users")
	return cmd
}

func (a *app) memorialShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <memorial-id>",
		Short: "Show a memorial and its current narrative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(commandContext(cmd), func(store Store) error {
				m, err := store.GetMemorial(commandContext(cmd), args[0])
				if err != nil {
					return fmt.Errorf("memorial %s: %w", args[0], err)
				}
				printMemorial(cmd, m)
				return nil
			})
		},
	}
}

func (a *app) memorialVoiceCmd() *cobra.Command {
	var tone, style string
	cmd := &cobra.Command{
		Use:   "voice <memorial-id>",
		Short: "Change the tone and style used for the next narrative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(commandContext(cmd), func(store Store) error {
				svc, err := a.service(cmd, store, true)
				if err != nil {
					return err
				}
				voice, err := svc.UpdateVoice(commandContext(cmd), usecase.VoiceInput{
					MemorialID: args[0],
					Tone:       tone,
					Style:      style,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("voice set to %s/%s", voice.Tone, voice.Style)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tone, "tone", "", "Narrative tone: "+joinTones())
	cmd.Flags().StringVar(&style, "style", "", "Narrative style: "+joinStyles())
	return cmd
}

func printMemorial(cmd *cobra.Command, m domain.Memorial) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(m.DisplayName()))
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%s - %s  |  %s/%s  |  %d memories  |  owner %s",
		orUnknown(m.BirthDate), orUnknown(m.PassedDate), m.Tone, m.Style, m.MemoryCount, m.OwnerID)))
	fmt.Fprintln(out)
	if strings.TrimSpace(m.Narrative) == "" {
		fmt.Fprintln(out, mutedStyle.Render("no narrative yet; run `memorialctl narrate "+m.ID+"`"))
		return
	}
	fmt.Fprintln(out, narrativeStyle.Render(m.Narrative))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func joinTones() string {
	var parts []string
	for _, t := range domain.Tones() {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}

func joinStyles() string {
	var parts []string
	for _, s := range domain.Styles() {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ", ")
}
