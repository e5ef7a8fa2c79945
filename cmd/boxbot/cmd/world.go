package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/boxbot/internal/sim"
	"github.com/psantana5/boxbot/pkg/boxes"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var worldOutput string

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "Arena world files",
	Long:  `Commands for inspecting the arena the controllers run in.`,
}

var worldShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the robot and boxes of the configured world",
	RunE:  runWorldShow,
}

func init() {
	rootCmd.AddCommand(worldCmd)
	worldCmd.AddCommand(worldShowCmd)

	worldShowCmd.Flags().StringVarP(&worldOutput, "output", "o", "table", "Output format: table, yaml")
}

func runWorldShow(cmd *cobra.Command, args []string) error {
	world, err := loadWorld()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if worldOutput == "yaml" {
		data, err := yaml.Marshal(world)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Fprint(out, string(data))
		return nil
	}

	name := world.Name
	if name == "" {
		name = "(unnamed)"
	}
	limit := "none"
	if world.MaxDuration > 0 {
		limit = world.MaxDuration.String()
	}
	fmt.Fprintf(out, "World %s: robot %s at (%.2f, %.2f) heading %.2f rad, time limit %s\n\n",
		name, world.Robot.Def, world.Robot.Position.X(), world.Robot.Position.Z(), world.Robot.Heading, limit)

	target, err := worldTarget(world)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.Header("Box", "X", "Z", "Size", "Mass", "Material", "Target")
	for _, b := range world.Boxes {
		mass, material := "N/A", "N/A"
		if b.Mass != nil {
			mass = fmt.Sprintf("%.2fkg", *b.Mass)
			material = string(models.ClassifyMass(*b.Mass))
		}
		targetMark := ""
		if b.Def == target {
			targetMark = "*"
		}
		table.Append(
			b.Def,
			fmt.Sprintf("%.2f", b.Position.X()),
			fmt.Sprintf("%.2f", b.Position.Z()),
			fmt.Sprintf("%.2fx%.2fx%.2f", b.Size.X(), b.Size.Y(), b.Size.Z()),
			mass,
			material,
			targetMark,
		)
	}
	table.Render()
	return nil
}

// worldTarget returns the box the navigator would pick in this world. It
// goes through the same box loading and selection the controller uses, so
// boxes outside the configured prefix and count are never marked.
func worldTarget(world *sim.World) (string, error) {
	s, err := sim.New(world)
	if err != nil {
		return "", err
	}
	loaded := boxes.Load(s, cfg.Navigation.BoxPrefix, cfg.Navigation.BoxCount, logging.Discard())
	sel := boxes.SelectTarget(loaded, logging.Discard())
	if !sel.Found {
		return "", nil
	}
	return sel.Target.Name, nil
}
