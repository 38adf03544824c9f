package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/store"
)

var processRepliesCmd = &cobra.Command{
	Use:   "process-replies",
	Short: "Poll the mailbox and act on digest replies",
	Long: `Process-replies fetches unseen messages, runs every command line
("deeper 12", "draft 7", ...) and mails one reply per command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.pipeline.Service.ProcessReplies(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %d message(s)\n", n)
		return err
	},
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Discover for every project, mail the digest, then process replies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		return a.pipeline.Service.RunAll(cmd.Context())
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or migrate the results database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		logger, err := newLogger(verbose, logFormat)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		st, err := store.Open(cfg.Store.Path, logger.Named("store"))
		if err != nil {
			return err
		}
		if err := st.Close(); err != nil {
			return err
		}
		logger.Debug("Database ready", zap.String("path", cfg.Store.Path))
		fmt.Fprintf(cmd.OutOrStdout(), "Database ready: %s\n", cfg.Store.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processRepliesCmd)
	rootCmd.AddCommand(runAllCmd)
	rootCmd.AddCommand(initDBCmd)
}
