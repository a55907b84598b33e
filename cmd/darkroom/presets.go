package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darkroom-go/darkroom/core"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the available filter presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range core.Presets() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
