package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pulsecheck",
	Short: "Metronome timing accuracy analyzer",
	Long:  `Analyzes guitar practice audio against a metronome and scores note timing.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
