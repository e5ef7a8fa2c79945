package cmd

import (
	"fmt"
	"strings"

	"github.com/psantana5/boxbot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// settings holds defaults, config file, environment and flag values
	settings = config.New()

	// cfg is the decoded configuration, loaded before every subcommand runs
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "boxbot",
	Short: "E-puck controllers for the light box arena",
	Long: `boxbot runs the arena robot controllers against an in-process kinematic
simulation: the navigator that finds and circles the lightest box, the box
position/mass reporter, and the basic movement tester.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./boxbot.yaml or $HOME/.boxbot/config.yaml)")
	flags.String("world", "", "world file (default is the built-in 20 box arena)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "log in JSON format")
	flags.String("log-dir", "", "also append logs to <dir>/<controller>.log")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	flags.Bool("metrics-dump", false, "print a metrics snapshot when the run ends")
	flags.String("record", "", "record runs and state transitions in this SQLite database")
	flags.Bool("realtime", false, "pace the simulation at wall-clock speed")
	flags.Duration("max-duration", 0, "end the simulation after this much simulated time")

	bindFlags(settings, rootCmd, map[string]string{
		"world":        "world",
		"log-level":    "log.level",
		"log-json":     "log.json",
		"log-dir":      "log.dir",
		"metrics-addr": "metrics.addr",
		"metrics-dump": "metrics.dump",
		"record":       "record.path",
		"realtime":     "realtime",
		"max-duration": "max_duration",
	})
}

// bindFlags maps persistent flags onto configuration keys. A flag only
// overrides the file and environment when it is set on the command line.
func bindFlags(v *viper.Viper, command *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, command.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(settings, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// isJSON reports whether format asks for JSON output
func isJSON(format string) bool {
	return strings.EqualFold(format, "json")
}
