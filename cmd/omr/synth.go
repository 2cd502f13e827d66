package main

import (
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go-omr-engine/internal/synth"
)

var synthOpts struct {
	out     string
	pattern string
	blank   bool
}

// synthCmd renders a synthetic filled sheet, mainly for trying the engine
// without a scanner.
// patternOffsets converts a letter cycle like "ABCD" into option offsets,
// rejecting letters outside the layout's alphabet and empty cycles.
func patternOffsets(pattern string, optionsPerQuestion int) ([]int, error) {
	pattern = strings.ToUpper(strings.TrimSpace(pattern))
	if pattern == "" {
		return nil, fmt.Errorf("pattern must name at least one option letter (or pass --blank)")
	}
	maxLetter := byte('A' + optionsPerQuestion - 1)
	offsets := make([]int, 0, len(pattern))
	for i := 0; i < len(pattern); i++ {
		l := pattern[i]
		if l < 'A' || l > maxLetter {
			return nil, fmt.Errorf("pattern letter %q is not a valid option", string(l))
		}
		offsets = append(offsets, int(l-'A'))
	}
	return offsets, nil
}

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate a synthetic bubble sheet image",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := synth.DefaultLayout()
		sheet := synth.NewSheet(layout)

		if !synthOpts.blank {
			offsets, err := patternOffsets(synthOpts.pattern, layout.OptionsPerQuestion)
			if err != nil {
				return err
			}
			sheet.MarkAll(func(question int) int {
				return offsets[(question-1)%len(offsets)]
			})
		}

		f, err := os.Create(synthOpts.out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, sheet.Render()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d questions)\n", synthOpts.out, layout.QuestionCount())
		return nil
	},
}

func init() {
	synthCmd.Flags().StringVarP(&synthOpts.out, "out", "o", "sheet.png", "Output PNG path")
	synthCmd.Flags().StringVar(&synthOpts.pattern, "pattern", "ABCD", "Letter cycle used to fill answers")
	synthCmd.Flags().BoolVar(&synthOpts.blank, "blank", false, "Leave every bubble unfilled")
	rootCmd.AddCommand(synthCmd)
}
