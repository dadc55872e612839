package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"videobridge/internal/job"
	"videobridge/internal/logging"
	"videobridge/internal/precheck"
)

// CreateCheckCmd creates the check command for verifying tool dependencies.
func CreateCheckCmd() *cobra.Command {
	var tools ToolFlags

	cmd := &cobra.Command{
		Use:   "check [kind]",
		Short: "Check tool dependencies",
		Long: `Verifies that the runtime for each job kind is usable. With no argument all ` +
			`kinds are checked; exits non-zero if anything is missing.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(c *cobra.Command, args []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			kinds := job.Kinds()
			if len(args) == 1 {
				kind, err := job.ParseKind(args[0])
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(2)
				}
				kinds = []job.Kind{kind}
			}

			checker := precheck.New(tools.Build(), logging.GetLogger("check"))

			failed := false
			for _, kind := range kinds {
				report := checker.Check(context.Background(), kind)
				printReport(report)
				if !report.Available {
					failed = true
				}
			}
			if failed {
				os.Exit(1)
			}
		},
	}

	tools.Register(cmd)
	return cmd
}

func printReport(r precheck.Report) {
	if r.Available {
		fmt.Printf("%-12s ok\n", r.Kind)
		return
	}
	fmt.Printf("%-12s UNAVAILABLE (%s)\n", r.Kind, r.ErrorKind)
	if len(r.Missing) > 0 {
		fmt.Printf("  missing: %s\n", strings.Join(r.Missing, ", "))
	}
	if r.Remediation != "" {
		fmt.Printf("  fix:     %s\n", r.Remediation)
	}
}
