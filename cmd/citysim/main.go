// Command citysim runs the CityScape grid city simulation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/cityscape/internal/config"
)

func main() {
	var (
		configPath string
		cfg        config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "citysim",
		Short:         "Grid city-building simulation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return setupLogging(cfg.Log)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "citysim.yaml", "config file (YAML)")

	rootCmd.AddCommand(runCmd(&cfg))
	rootCmd.AddCommand(generateCmd(&cfg))
	rootCmd.AddCommand(inspectCmd(&cfg))
	rootCmd.AddCommand(stepCmd(&cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd(cfg *config.Config) *cobra.Command {
	var (
		port int
		db   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation with the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				cfg.API.Port = port
			}
			if db != "" {
				cfg.Storage.Path = db
			}
			return runSim(*cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP API port")
	cmd.Flags().StringVar(&db, "db", "", "database path (overrides config)")
	return cmd
}

func generateCmd(cfg *config.Config) *cobra.Command {
	var (
		seed  int64
		out   string
		save  bool
		force bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a starter city and print or save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("seed") {
				cfg.City.Seed = seed
			}
			return runGenerate(*cfg, out, save, force)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "generation seed (overrides config, 0 = random)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the city as JSON to this file (- for stdout)")
	cmd.Flags().BoolVar(&save, "save", false, "save the city to the configured database")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing saved city")
	return cmd
}

func inspectCmd(cfg *config.Config) *cobra.Command {
	var listBuildings bool
	cmd := &cobra.Command{
		Use:   "inspect [db-path]",
		Short: "Evaluate a saved city and print its report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Storage.Path = args[0]
			}
			return runInspect(*cfg, listBuildings)
		},
	}
	cmd.Flags().BoolVarP(&listBuildings, "buildings", "b", false, "list every building")
	return cmd
}

func stepCmd(cfg *config.Config) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "step [ticks]",
		Short: "Advance the saved city offline by a number of ticks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ticks := 1
			if len(args) == 1 {
				n, err := parseTicks(args[0])
				if err != nil {
					return err
				}
				ticks = n
			}
			return runStep(*cfg, ticks, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "persist the advanced city")
	return cmd
}
