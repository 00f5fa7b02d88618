package check

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/cruisesim/pkg/scenario"
)

func NewCheckScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "validate a scenario file and list its events (built-in if no file given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := scenario.Default()
			if len(args) == 1 {
				var err error
				if s, err = scenario.Load(args[0]); err != nil {
					return err
				}
			}
			printScenario(cmd.OutOrStdout(), s)
			return nil
		},
	}
	return cmd
}

func printScenario(w io.Writer, s *scenario.Scenario) {
	fmt.Fprintf(w, "scenario %q (version %s, duration %s)\n", s.Name, s.Version, s.Duration)
	for _, e := range s.Events {
		fmt.Fprintf(w, "%10s  %-24s %s\n", e.At, e.Command.String(), e.Note)
	}
}
