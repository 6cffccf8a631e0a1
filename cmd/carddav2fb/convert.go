package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/churchy16/carddav2fb/internal/phonebook"
	"github.com/churchy16/carddav2fb/pkg/vcard"
)

var (
	convertFormat string
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert [file ...]",
	Short: "Parse local vCard files (or stdin) and emit phonebook output",
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertFormat, "format", "", "output format: json or xml")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default stdout)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	var blobs []string
	if len(args) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		blobs = append(blobs, string(b))
	}
	for _, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		blobs = append(blobs, string(b))
	}

	book, err := vcard.Parse(strings.Join(blobs, "\n"))
	if err != nil {
		return err
	}
	cards := phonebook.Dissolve(book.Cards(), logger)
	logger.Info().Int("cards", len(cards)).Msg("parsed contacts")

	return writeOutput(cfg, cards, convertFormat, convertOutput)
}
