package main

import (
	"time"

	"github.com/aunum/log"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/gymrl/examples"
)

func main() {
	var opts examples.Options

	root := &cobra.Command{
		Use:          "gymrl",
		Short:        "Train agents on environments served by a Gym server",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.Gym.Host, "host", "localhost", "gym server host")
	flags.StringVar(&opts.Gym.Port, "port", "4040", "gym server port")
	flags.DurationVar(&opts.Gym.DialTimeout, "timeout", 10*time.Second,
		"timeout for connecting to the gym server")
	flags.BoolVar(&opts.Gym.Render, "render", false,
		"render evaluation episodes on the server")
	flags.Uint64Var(&opts.Seed, "seed", 192382, "random seed")
	flags.StringVar(&opts.ConfigFile, "config", "",
		"JSON file overriding the default script configuration")
	flags.StringVar(&opts.ReturnsFile, "returns", "",
		"file to save episodic training returns to")
	flags.StringVar(&opts.PlotFile, "plot", "",
		"PNG file to save the learning curve to")
	flags.StringVar(&opts.MonitorDir, "monitor", "",
		"server-side directory to record evaluation episodes in")

	root.AddCommand(
		examples.LunarLanderDQNCommand(&opts),
		examples.MountainCarDDPGCommand(&opts),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
