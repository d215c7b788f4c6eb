// Package cli implements the operator console: record management against
// the UPI record API with an offline fallback, and the fraud report flow.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	cfgFile string
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "upiguard",
		Short: "UPI Guard operator console",
		Long: `UPI Guard manages the UPI risk record list and files fraud reports.

When the record API is unreachable the console works on the bundled sample
data and marks every change as local only.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.upiguard/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Record API base URL")
	_ = viper.BindPFlag(keyAPIBaseURL, rootCmd.PersistentFlags().Lookup("api-url"))
}

// Execute runs the root command
func Execute(version string) error {
	sess := newSession(os.Stdout, os.Stdin)
	defer sess.close()

	addCommands(rootCmd, sess)
	rootCmd.AddCommand(newShellCmd(sess))
	rootCmd.AddCommand(versionCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// addCommands attaches every command that also works inside the shell
func addCommands(root *cobra.Command, sess *session) {
	root.AddCommand(newRecordsCmd(sess))
	root.AddCommand(newReportsCmd(sess))
	root.AddCommand(newLoginCmd(sess))
	root.AddCommand(newSignupCmd(sess))
	root.AddCommand(newConfigCmd(sess))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the console version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "upiguard", rootCmd.Version)
	},
}

// newLogger writes warnings (offline fallback, local-only changes) to
// stderr so they never mix with command output
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = ""
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
