package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spigell/rfp-responder/internal/rfp"
)

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Manage vendors",
}

var vendorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a vendor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		notes, _ := cmd.Flags().GetString("notes")

		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		v, err := rt.service.CreateVendor(cmd.Context(), rfp.Vendor{Name: name, Email: email, Notes: notes})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

var vendorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vendors, or search them with --query",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		var vendors []rfp.Vendor
		if query, _ := cmd.Flags().GetString("query"); query != "" {
			vendors, err = rt.service.SearchVendors(cmd.Context(), query)
		} else {
			vendors, err = rt.service.ListVendors(cmd.Context())
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), vendors)
	},
}

var vendorDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a vendor without proposals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		return rt.service.DeleteVendor(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(vendorCmd)
	vendorCmd.AddCommand(vendorAddCmd, vendorListCmd, vendorDeleteCmd)

	vendorAddCmd.Flags().String("name", "", "vendor name")
	vendorAddCmd.Flags().String("email", "", "vendor email address")
	vendorAddCmd.Flags().String("notes", "", "free-form notes")
	_ = vendorAddCmd.MarkFlagRequired("name")
	_ = vendorAddCmd.MarkFlagRequired("email")

	vendorListCmd.Flags().StringP("query", "q", "", "search by name or email")
}
