package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/planificaia/aliada/cmd/cli/feedback"
	"github.com/planificaia/aliada/cmd/cli/profile"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/spf13/cobra"
	"io/fs"
	"os"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(profile.Group)
	rootCmd.AddCommand(profile.Steps)
	rootCmd.AddCommand(profile.Locations)
	rootCmd.AddGroup(feedback.Group)
	rootCmd.AddCommand(feedback.Report)
}

var rootCmd = &cobra.Command{
	Use:          "aliada-cli",
	Long:         `Command line utilities for Aliada, the AI teaching assistant`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
