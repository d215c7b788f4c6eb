package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

const shellHelp = `Commands run as in the CLI, without the "upiguard" prefix:
  records list [--search TERM] [--status All|Safe|Risk]
  records add --name NAME --upi-id ID --score N --status Safe|Risk
  records update ID [--name ..] [--score ..] [--status ..]
  records delete ID
  records stats | records refresh | records ops
  reports create|submit|list|show|upload|delete|summary
  login | signup | config show | config set KEY VALUE
  help | exit`

func newShellCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive console that keeps one record set across commands",
		Long: `The shell loads the record list once and keeps it, so local-only
changes made while the API is down stay visible until the next refresh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, sess)
		},
	}
}

func runShell(cmd *cobra.Command, sess *session) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "UPI Guard console. Type \"help\" for commands.")

	// load up front so the banner shows where the data came from
	printBanner(out, sess.records(cmd.Context()).Snapshot())

	for {
		fmt.Fprint(out, "upiguard> ")
		line, err := sess.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err != nil && strings.TrimSpace(line) == "" {
			fmt.Fprintln(out)
			return nil
		}

		args, perr := shlex.Split(line)
		switch {
		case perr != nil:
			fmt.Fprintln(out, "Error:", perr)
			continue
		case len(args) == 0:
			continue
		case args[0] == "exit" || args[0] == "quit":
			return nil
		case args[0] == "help":
			fmt.Fprintln(out, shellHelp)
			continue
		}

		// a fresh tree per line so flag values never leak between commands
		root := &cobra.Command{Use: "upiguard", SilenceUsage: true, SilenceErrors: true}
		addCommands(root, sess)
		root.SetArgs(args)
		root.SetOut(out)
		root.SetErr(out)
		if err := root.ExecuteContext(cmd.Context()); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}
