/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/whiskeyshelf/apiserver/config"
	"github.com/whiskeyshelf/apiserver/internal/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apiserver",
	Short: "Whiskey catalogue API server",
	Long: `A small API for cataloguing whiskeys together with your own
tags and places. Run "apiserver server" to serve HTTP, "apiserver migrate up"
to prepare the database and "apiserver worker" to clean up replaced images.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and installs the configured logger.
func loadConfig() config.Config {
	cfg := config.LoadConfig()
	logger.Setup(cfg.Log)
	return cfg
}
