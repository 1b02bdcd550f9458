package cmd

import (
	"github.com/spf13/cobra"
)

var inboundCmd = &cobra.Command{
	Use:   "inbound",
	Short: "Inspect and re-process stored inbound emails",
}

var inboundListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inbound emails that are pending or failed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rfpID, _ := cmd.Flags().GetString("rfp")

		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		emails, err := rt.service.ListUnprocessed(cmd.Context(), rfpID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), emails)
	},
}

var inboundReparseCmd = &cobra.Command{
	Use:   "reparse <id>",
	Short: "Run extraction and scoring again for a stored email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{ai: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		p, err := rt.service.Reparse(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	rootCmd.AddCommand(inboundCmd)
	inboundCmd.AddCommand(inboundListCmd, inboundReparseCmd)

	inboundListCmd.Flags().String("rfp", "", "only emails of this RFP")
}
