package check

import (
	"github.com/spf13/cobra"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "commands to check car data and scenarios",
	}

	cmd.AddCommand(NewCheckForcesCmd())
	cmd.AddCommand(NewCheckScenarioCmd())

	return cmd
}
