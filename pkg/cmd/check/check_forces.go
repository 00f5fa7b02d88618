package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpapenbr/cruisesim/pkg/config"
	"github.com/mpapenbr/cruisesim/pkg/sim"
)

var speeds []float64

func NewCheckForcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forces",
		Short: "display engine rpm and max wheel force per gear",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.CarParams(viper.GetViper())
			if err != nil {
				return err
			}
			return printForces(cmd.OutOrStdout(), p, speeds)
		},
	}
	cmd.Flags().Float64SliceVar(&speeds, "speeds",
		[]float64{0, 10, 20, 30, 60, 100, 150, 200},
		"speeds (km/h) to compute")
	return cmd
}

type forceCell struct {
	rpm   float64
	force float64
}

type forceRow struct {
	kmh   float64
	gears []forceCell
}

func computeForces(p sim.Params, kmhs []float64) ([]forceRow, error) {
	// validate once, NewCar for every cell would report the same error
	if _, err := sim.NewCar(p); err != nil {
		return nil, err
	}
	return lo.Map(kmhs, func(kmh float64, _ int) forceRow {
		row := forceRow{kmh: kmh, gears: make([]forceCell, len(p.GearRatios))}
		for g := range p.GearRatios {
			//nolint:errcheck // params are valid
			car, _ := sim.NewCar(p, sim.WithVelocity(kmh), sim.WithGear(g+1))
			row.gears[g].rpm, row.gears[g].force = car.MaxWheelForce()
		}
		return row
	}), nil
}

func printForces(w io.Writer, p sim.Params, kmhs []float64) error {
	rows, err := computeForces(p, kmhs)
	if err != nil {
		return err
	}
	fixed := func(v float64, places int32) string {
		return decimal.NewFromFloat(v).StringFixed(places)
	}
	car, _ := sim.NewCar(p) //nolint:errcheck // checked above
	peak := car.TorqueCurve().Peak()
	fmt.Fprintf(w, "peak torque %s Nm at %s rpm, cut-out at %s rpm\n\n",
		fixed(peak.Torque, 1), fixed(peak.RPM, 0), fixed(p.CutoutRPM, 0))

	header := []string{fmt.Sprintf("%8s", "km/h")}
	for g := range p.GearRatios {
		header = append(header, fmt.Sprintf("%20s", fmt.Sprintf("gear %d rpm/N", g+1)))
	}
	fmt.Fprintln(w, strings.Join(header, " "))
	for _, row := range rows {
		cols := []string{fmt.Sprintf("%8s", fixed(row.kmh, 1))}
		for _, c := range row.gears {
			cols = append(cols, fmt.Sprintf("%20s",
				fmt.Sprintf("%s/%s", fixed(c.rpm, 0), fixed(c.force, 2))))
		}
		fmt.Fprintln(w, strings.Join(cols, " "))
	}
	return nil
}
