package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jademcosta/courier/pkg/app"
	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

var configPath *string

func main() {
	rootCmd := &cobra.Command{
		Use:     "courier --config <FILE_PATH>",
		Short:   "Starts the upload coordination server",
		Version: version,
		Run:     start,
	}

	setupCommandFlags(rootCmd)

	err := rootCmd.Execute()
	if err != nil {
		panic(fmt.Sprintf("Error on startup: %v", err))
	}
}

func setupCommandFlags(rootCmd *cobra.Command) {
	configPath = rootCmd.Flags().StringP("config", "c", "", "[required]The path for the config file")
	err := rootCmd.MarkFlagRequired("config")
	if err != nil {
		panic(fmt.Sprintf("err on flags setup: %v", err))
	}
}

func start(_ *cobra.Command, _ []string) {
	conf := initializeConfig()
	l := initializeLogger(conf)

	app.New(conf, l).Start()
}

func initializeConfig() *config.Config {
	confData, err := os.ReadFile(*configPath)
	if err != nil {
		panic(fmt.Errorf("error reading config file: %w", err))
	}

	c, err := config.New(confData)
	if err != nil {
		panic(fmt.Errorf("error initializing/parsing config: %w", err))
	}

	c.Version = version

	return c
}

func initializeLogger(c *config.Config) *slog.Logger {
	return logger.New(c)
}
