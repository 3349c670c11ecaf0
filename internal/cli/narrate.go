package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"memorial-narrator/internal/usecase"
)

func (a *app) narrateCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "narrate <memorial-id>",
		Short: "Generate and save a first-person narrative for a memorial",
		Long: `Generate a first-person life narrative from a memorial's memories and save it.

The model is used when OPENAI_API_KEY is set. When the model fails, or with
--offline, the narrative is composed from templates instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(commandContext(cmd), func(store Store) error {
				svc, err := a.service(cmd, store, offline)
				if err != nil {
					return err
				}
				ctx := commandContext(cmd)
				res := svc.GenerateNarrative(ctx, usecase.GenerateInput{MemorialID: args[0]})
				if !res.Success {
					return errors.New(res.Error)
				}

				memorial, err := store.GetMemorial(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, borderStyle.Render(headerStyle.Render(memorial.DisplayName())))
				fmt.Fprintln(out)
				fmt.Fprintln(out, narrativeStyle.Render(res.Narrative))
				if res.Warning != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, warningStyle.Render(res.Warning))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the model and compose from templates")
	return cmd
}
