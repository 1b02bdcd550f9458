package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Submit and inspect vendor proposals",
}

var proposalSubmitCmd = &cobra.Command{
	Use:   "submit <rfp-id>",
	Short: "Extract and score a vendor reply read from --file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		file, _ := cmd.Flags().GetString("file")

		text, err := readText(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}

		rt, err := newSession(cmd.Context(), needs{ai: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		p, err := rt.service.ProcessProposal(cmd.Context(), args[0], from, text)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var proposalListCmd = &cobra.Command{
	Use:   "list <rfp-id>",
	Short: "List the proposals of an RFP, best score first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		proposals, err := rt.service.ListProposalsByRFP(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), proposals)
	},
}

var proposalStatsCmd = &cobra.Command{
	Use:   "stats <rfp-id>",
	Short: "Summarise the proposal scores of an RFP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newSession(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.service.ProposalStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	rootCmd.AddCommand(proposalCmd)
	proposalCmd.AddCommand(proposalSubmitCmd, proposalListCmd, proposalStatsCmd)

	proposalSubmitCmd.Flags().String("from", "", "vendor email address")
	proposalSubmitCmd.Flags().StringP("file", "f", "", "file with the reply text, - or empty reads stdin")
	_ = proposalSubmitCmd.MarkFlagRequired("from")
}

func readText(stdin io.Reader, file string) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read proposal file: %w", err)
	}
	return string(data), nil
}
