package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"go-omr-engine/pkg/omr"
)

var processOpts struct {
	keyFile     string
	artifactDir string
	version     string
	studentID   string
	strict      bool
}

var processCmd = &cobra.Command{
	Use:   "process <sheet>",
	Short: "Score a single sheet image or PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEngine(processOpts.keyFile, processOpts.artifactDir, processOpts.strict)
		if err != nil {
			return err
		}

		result := engine.Process(cmd.Context(), omr.Sheet{
			Source:          args[0],
			DeclaredVersion: processOpts.version,
			StudentID:       processOpts.studentID,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Success {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOpts.keyFile, "keys", "k", "", "Path to answer key JSON file")
	processCmd.Flags().StringVarP(&processOpts.artifactDir, "out", "o", "", "Directory for audit artifacts")
	processCmd.Flags().StringVar(&processOpts.version, "sheet-version", "", "Declared sheet version (skips marker detection)")
	processCmd.Flags().StringVar(&processOpts.studentID, "student", "", "Student identifier to attach to the result")
	processCmd.Flags().BoolVar(&processOpts.strict, "strict", false, "Treat unrepairable grids as terminal failures")
	rootCmd.AddCommand(processCmd)
}
