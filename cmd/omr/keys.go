package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"go-omr-engine/pkg/keys"
	"go-omr-engine/pkg/models"
)

var validateKeysCmd = &cobra.Command{
	Use:   "validate-keys <file>",
	Short: "Validate an answer key JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := keys.LoadFile(args[0])
		if err != nil {
			return err
		}

		opts := models.DefaultProcessingOptions()
		validator := keys.NewValidator(opts.TotalQuestions(), opts.ValidLetters())

		report := make(map[string]keys.ValidationResult)
		allValid := true
		for _, version := range provider.Versions() {
			key, _ := provider.AnswerKey(version)
			result := validator.Validate(key)
			report[version] = result
			if !result.Valid {
				allValid = false
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !allValid {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateKeysCmd)
}
