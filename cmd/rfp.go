package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rfpCmd = &cobra.Command{
	Use:   "rfp",
	Short: "Create, inspect, send and compare RFPs",
}

var rfpCreateCmd = &cobra.Command{
	Use:   "create <prompt>",
	Short: "Structure a procurement request and store it as an RFP",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{ai: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		r, err := rt.service.CreateRFP(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), r)
	},
}

var rfpPreviewCmd = &cobra.Command{
	Use:   "preview <prompt>",
	Short: "Structure a procurement request without storing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{ai: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		rs, err := rt.service.PreviewRFP(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rs)
	},
}

var rfpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List RFPs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		rfps, err := rt.service.ListRFPs(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rfps)
	},
}

var rfpShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an RFP with the dispatch state of its vendors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		r, err := rt.service.GetRFPWithVendors(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), r)
	},
}

var rfpCompareCmd = &cobra.Command{
	Use:   "compare <id>",
	Short: "Rank the proposals of an RFP and recommend a vendor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{ai: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		comparison, err := rt.service.CompareProposals(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), comparison)
	},
}

var rfpSendCmd = &cobra.Command{
	Use:   "send <id>",
	Short: "Draft and email the RFP to the given vendors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vendorIDs, _ := cmd.Flags().GetStringSlice("vendor")
		if len(vendorIDs) == 0 {
			return errors.New("at least one --vendor is required")
		}

		rt, err := newSession(cmd.Context(), needs{ai: true, mail: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		r, err := rt.service.GetRFP(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			ok, err := confirm(fmt.Sprintf("Send %q to %d vendor(s)?", r.Title, len(vendorIDs)))
			if err != nil {
				return err
			}
			if !ok {
				rt.logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return nil
			}
		}

		result, err := rt.service.SendRFPToVendors(cmd.Context(), r.ID, vendorIDs)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var rfpDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an RFP with its proposals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		return rt.service.DeleteRFP(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(rfpCmd)
	rfpCmd.AddCommand(rfpCreateCmd, rfpPreviewCmd, rfpListCmd, rfpShowCmd, rfpCompareCmd, rfpSendCmd, rfpDeleteCmd)

	rfpSendCmd.Flags().StringSlice("vendor", nil, "vendor id to send to, repeatable")
	rfpSendCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
