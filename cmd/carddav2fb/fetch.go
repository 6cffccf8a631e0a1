package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/churchy16/carddav2fb/internal/carddav"
	"github.com/churchy16/carddav2fb/internal/config"
	"github.com/churchy16/carddav2fb/internal/phonebook"
	"github.com/churchy16/carddav2fb/internal/store"
	"github.com/churchy16/carddav2fb/pkg/vcard"
)

var (
	fetchFormat   string
	fetchOutput   string
	fetchNoCache  bool
	fetchParallel int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download contacts from the configured CardDAV accounts",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "", "output format: json or xml")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file (default stdout)")
	fetchCmd.Flags().BoolVar(&fetchNoCache, "skip-cache", false, "ignore the local download cache")
	fetchCmd.Flags().IntVar(&fetchParallel, "parallel", 4, "maximum accounts fetched concurrently")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if len(cfg.Accounts) == 0 {
		return errors.New("no accounts configured")
	}

	var st *store.Store
	if !fetchNoCache {
		st, err = store.New(cfg.Cache.Path, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("download cache unavailable, fetching everything")
			st = nil
		} else {
			defer st.Close()
		}
	}

	ctx := cmd.Context()
	if st != nil {
		ttl, _ := cfg.CacheTTL()
		if err := st.Expire(ctx, ttl); err != nil {
			logger.Warn().Err(err).Msg("cache expiry failed")
		}
	}
	blobs := make([]string, len(cfg.Accounts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallel)
	for i, acct := range cfg.Accounts {
		i, acct := i, acct
		g.Go(func() error {
			text, err := fetchAccount(ctx, acct, st, logger)
			if err != nil {
				return fmt.Errorf("account %q: %w", acct.Name, err)
			}
			blobs[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	book, err := vcard.Parse(strings.Join(blobs, "\n"))
	if err != nil {
		return err
	}
	cards := phonebook.Dissolve(book.Cards(), logger)
	logger.Info().Int("cards", len(cards)).Msg("fetched contacts")

	return writeOutput(cfg, cards, fetchFormat, fetchOutput)
}

// fetchAccount downloads every addressbook of one account, reusing cached
// bodies for members whose etag is unchanged, and returns the concatenated
// raw vCard text in a stable (href-sorted) order.
func fetchAccount(ctx context.Context, acct config.Account, st *store.Store, logger zerolog.Logger) (string, error) {
	client, err := carddav.New(acct, logger)
	if err != nil {
		return "", err
	}
	books, err := client.Addressbooks(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var seen []string
	for _, book := range books {
		listing, err := client.ETags(ctx, book.Path)
		if err != nil {
			return "", err
		}

		bodies := make(map[string]string, len(listing))
		var stale []string
		for _, res := range listing {
			seen = append(seen, res.Href)
			if st != nil {
				data, ok, err := st.Get(ctx, acct.Name, res.Href, res.ETag)
				if err != nil {
					logger.Warn().Err(err).Str("href", res.Href).Msg("cache read failed")
				} else if ok {
					bodies[res.Href] = data
					continue
				}
			}
			stale = append(stale, res.Href)
		}

		fetched, err := client.Multiget(ctx, book.Path, stale)
		if err != nil {
			return "", err
		}
		for _, res := range fetched {
			bodies[res.Href] = res.Data
			if st != nil {
				if err := st.Put(ctx, acct.Name, res.Href, res.ETag, res.Data); err != nil {
					logger.Warn().Err(err).Str("href", res.Href).Msg("cache write failed")
				}
			}
		}

		for _, res := range listing {
			if body := bodies[res.Href]; body != "" {
				sb.WriteString(body)
				sb.WriteString("\n")
			}
		}
		logger.Info().
			Str("addressbook", book.Name).
			Int("members", len(listing)).
			Int("downloaded", len(stale)).
			Msg("addressbook fetched")
	}

	if st != nil {
		if err := st.Prune(ctx, acct.Name, seen); err != nil {
			logger.Warn().Err(err).Msg("cache prune failed")
		}
	}
	return sb.String(), nil
}
