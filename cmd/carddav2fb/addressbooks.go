package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/churchy16/carddav2fb/internal/carddav"
)

var addressbooksCmd = &cobra.Command{
	Use:   "addressbooks",
	Short: "List the addressbooks of each configured account",
	RunE:  runAddressbooks,
}

func runAddressbooks(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if len(cfg.Accounts) == 0 {
		return errors.New("no accounts configured")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tPATH\tNAME")
	for _, acct := range cfg.Accounts {
		client, err := carddav.New(acct, logger)
		if err != nil {
			return err
		}
		books, err := client.Addressbooks(cmd.Context())
		if err != nil {
			return fmt.Errorf("account %q: %w", acct.Name, err)
		}
		for _, b := range books {
			fmt.Fprintf(w, "%s\t%s\t%s\n", acct.Name, b.Path, b.Name)
		}
	}
	return w.Flush()
}
