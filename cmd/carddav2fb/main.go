package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/churchy16/carddav2fb/internal/config"
	"github.com/churchy16/carddav2fb/internal/logging"
	"github.com/churchy16/carddav2fb/internal/phonebook"
	"github.com/churchy16/carddav2fb/pkg/vcard"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "carddav2fb",
	Short: "Convert CardDAV contacts into FRITZ!Box phonebooks",
	Long: `carddav2fb downloads vCard contacts from CardDAV accounts (or reads
local .vcf files), parses them and emits either a JSON dump of the parsed
cards or a FRITZ!Box phonebook XML ready for import.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default $XDG_CONFIG_HOME/carddav2fb/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(convertCmd, fetchCmd, addressbooksCmd)
}

// setup loads the configuration and builds the logger shared by all
// subcommands.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return cfg, logging.New(level, true), nil
}

// writeOutput emits the card collection in the requested format, to stdout
// unless an output path is set.
func writeOutput(cfg *config.Config, cards []vcard.Card, format, output string) error {
	if format == "" {
		format = cfg.Phonebook.Format
	}
	if output == "" {
		output = cfg.Phonebook.Output
	}

	var w io.Writer = os.Stdout
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return phonebook.WriteJSON(w, cards)
	case "xml":
		return phonebook.WriteXML(w, phonebook.Convert(cards, cfg.Phonebook.Name, cfg.Phonebook.VIPs))
	default:
		return fmt.Errorf("unknown output format %q (want json or xml)", format)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
