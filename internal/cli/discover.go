package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	projectID string
	depth     int
	sendEmail bool
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search for funding for one or every catalog project",
	Long: `Discover plans queries for each project, runs them against the configured
search backends, scores the hits and stores them. Hits from one level seed
follow-up queries for the next, up to --depth levels.

The digest is printed to stdout, or mailed with --send-email.

Example:
  grantscout discover
  grantscout discover --project-id iron-lotus --depth 1
  grantscout discover --send-email`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&projectID, "project-id", "", "project to search for (default: every project)")
	discoverCmd.Flags().IntVar(&depth, "depth", 0, "follow-up levels, 1 disables follow-ups (default: search.followup_depth)")
	discoverCmd.Flags().BoolVar(&sendEmail, "send-email", false, "mail the digest instead of printing it")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	svc := a.pipeline.Service

	if sendEmail {
		_, err := svc.DiscoverAndEmail(ctx, projectID, depth)
		return err
	}

	reports, runErr := svc.Discover(ctx, projectID, depth)
	for _, r := range reports {
		a.logger.Info("Discovery finished",
			zap.String("project", r.ProjectID),
			zap.String("run_id", r.RunID),
			zap.Int("queries", len(r.Queries)),
			zap.Int("depth", r.Depth),
			zap.Int("stored", len(r.Stored)),
			zap.Int("pivots", len(r.Pivots)),
			zap.Duration("took", r.Duration))
	}
	if len(reports) == 0 && runErr != nil {
		return runErr
	}

	body, _ := svc.DigestFromReports(reports)
	fmt.Fprintln(cmd.OutOrStdout(), body)
	return runErr
}
