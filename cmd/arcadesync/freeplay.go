package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/client"
)

var freeplayCmd = &cobra.Command{
	Use:   "freeplay [true|false]",
	Short: "Show or set the fleet-wide free play flag",
	Long: `Without an argument, print the server's free play flag.
With true or false, store it on the server. Agents apply it on their next pass.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFreePlay,
}

func init() {
	rootCmd.AddCommand(freeplayCmd)
}

func runFreePlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	c, err := client.New(cfg.ServerURL, client.WithTimeout(30*time.Second), client.WithUserAgent(userAgent()))
	if err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 0 {
		value, present, err := c.FreePlay(ctx)
		if err != nil {
			return err
		}
		if !present {
			fmt.Println("unset")
			return nil
		}
		fmt.Println(value)
		return nil
	}

	value, err := strconv.ParseBool(args[0])
	if err != nil {
		return fmt.Errorf("invalid value %q: want true or false", args[0])
	}
	stored, err := c.SetFreePlay(ctx, value)
	if err != nil {
		return err
	}
	printInfo("free play set to %t on %s", stored, c.BaseURL())
	return nil
}
