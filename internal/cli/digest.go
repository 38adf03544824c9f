package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportLimit  int
	reportOutput string
)

var sendDigestCmd = &cobra.Command{
	Use:   "send-digest",
	Short: "Mail a digest built from stored results",
	Long: `Send-digest selects stored results scoring at least digest.min_score that
are still open, unseen ones first, and mails them with recent pivot
suggestions. Mailed results are marked as shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.pipeline.Service.SendDigest(cmd.Context(), projectID); err != nil {
			return err
		}
		a.logger.Info("Digest sent", zap.String("to", a.cfg.Email.To))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the newest stored results and pivot suggestions",
	Long: `Report renders the most recent results without searching or sending mail.

Example:
  grantscout report --limit 50
  grantscout report --project-id iron-lotus --output results.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		snap, err := a.pipeline.Service.Report(cmd.Context(), projectID, reportLimit)
		if err != nil {
			return err
		}
		return a.pipeline.RenderReport(snap, reportOutput, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sendDigestCmd)
	rootCmd.AddCommand(reportCmd)

	sendDigestCmd.Flags().StringVar(&projectID, "project-id", "", "restrict to one project")

	reportCmd.Flags().StringVar(&projectID, "project-id", "", "restrict to one project")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "number of results")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write to file (.json for JSON, anything else for text)")
}
