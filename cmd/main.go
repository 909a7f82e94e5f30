package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trackforge/previewd/pkg/config"
	_ "go.uber.org/automaxprocs"
)

const version = "0.0.1" //FIXME: automatize this

var configPath *string

func main() {
	rootCmd := &cobra.Command{
		Use:   "previewd",
		Short: "Generates bounded public audio previews from private assets",
	}

	configPath = rootCmd.PersistentFlags().StringP("config", "c", "", "The path for the config file")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newGenerateCommand())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeUsage)
	}
}

func initializeConfig() (*config.Config, error) {
	confData := []byte{}

	if *configPath != "" {
		var err error
		confData, err = os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	c, err := config.New(confData)
	if err != nil {
		return nil, fmt.Errorf("error initializing/parsing config: %w", err)
	}

	c.Version = version

	return c, nil
}
