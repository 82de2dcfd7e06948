package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "arcadesync",
		Short: "Keep an arcade cabinet in sync with its distribution server",
		Long: `arcadesync keeps the game running, installs new packages published by
arcadesyncd and applies the fleet-wide free play setting.

Without a subcommand it runs the agent until interrupted.

Examples:
  arcadesync                          # Run the agent
  arcadesync sync                     # Run one sync pass and exit
  arcadesync plan -o json             # Show which packages are stale
  arcadesync freeplay true            # Turn free play on for the fleet
  arcadesync status                   # Show local state
  arcadesync config init              # Write a default config file`,
		Args:          cobra.NoArgs,
		RunE:          runAgent,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/arcadesync/agent.yaml)")
	rootCmd.PersistentFlags().String("server", "", "override server_url")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format (pretty, plain, json, yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors to the console")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
