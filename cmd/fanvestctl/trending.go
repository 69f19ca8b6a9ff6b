package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/query"
	"github.com/ts4z/fanvest/searchapi"
	"github.com/ts4z/fanvest/ts"
)

type listingFlags struct {
	page   int
	limit  int
	search string
}

func (f *listingFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 0, "Page number (default 1)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Items per page (default 10)")
	cmd.Flags().StringVar(&f.search, "search", "", "Only show items matching this text")
}

func (f *listingFlags) args(typ model.TrendingType) searchapi.TrendingArgs {
	return searchapi.TrendingArgs{Page: f.page, Limit: f.limit, Type: typ, Search: f.search}.WithDefaults()
}

func offset(a searchapi.TrendingArgs) int {
	return (a.Page - 1) * a.Limit
}

func trendingCommand() *cobra.Command {
	var (
		lf      listingFlags
		watch   bool
		refresh time.Duration
	)
	cmd := &cobra.Command{
		Use:   "trending [top|songs|artists]",
		Short: "Show a trending listing",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(ctx context.Context, s *session, args []string) error {
			typ := model.TrendingTop
			if len(args) == 1 {
				var err error
				if typ, err = model.ParseTrendingType(args[0]); err != nil {
					return err
				}
			}
			a := lf.args(typ)
			sub, err := s.client.Trending(a)
			if err != nil {
				return err
			}
			defer sub.Close()

			if watch {
				return watchListing(ctx, s.client, sub, a, refresh)
			}

			wctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			snap, err := waitFresh(wctx, sub)
			if err != nil {
				return fmt.Errorf("can't fetch %s: %w", typ, err)
			}
			resp, _ := s.client.TrendingData(snap)
			return renderTrending(os.Stdout, resp, offset(a))
		}),
	}
	lf.register(cmd)
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and reprint the listing whenever it changes")
	cmd.Flags().DurationVar(&refresh, "refresh", 30*time.Second, "With --watch, how often to refetch")
	return cmd
}

// watchListing prints every fresh version of a listing until ctx ends.
// Errors are reported and the last good listing stays on screen.
func watchListing(ctx context.Context, c *searchapi.Client, sub *query.Subscription, a searchapi.TrendingArgs, refresh time.Duration) error {
	if refresh <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", refresh)
	}
	human := ts.New(clock)
	ticker := clock.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := sub.Refetch(); err != nil {
				return err
			}
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			switch {
			case snap.Status == query.StatusError:
				fmt.Fprintf(os.Stderr, "refresh failed: %v\n", snap.Err)
			case snap.Status == query.StatusSuccess && !snap.Stale:
				resp, _ := c.TrendingData(snap)
				fmt.Printf("\n%s, page %d (updated %s)\n", a.Type, a.Page, human.Ago(snap.UpdatedAt))
				if err := renderTrending(os.Stdout, resp, offset(a)); err != nil {
					return err
				}
			}
		}
	}
}

func dashboardCommand() *cobra.Command {
	var lf listingFlags
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the top, songs and artists listings together",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *session, args []string) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var mu sync.Mutex
			results := map[model.TrendingType]*model.GetTrendingContentResponse{}

			g, gctx := errgroup.WithContext(ctx)
			for _, typ := range model.TrendingTypes {
				g.Go(func() error {
					sub, err := s.client.Trending(lf.args(typ))
					if err != nil {
						return err
					}
					defer sub.Close()
					snap, err := waitFresh(gctx, sub)
					if err != nil {
						return fmt.Errorf("can't fetch %s: %w", typ, err)
					}
					resp, _ := s.client.TrendingData(snap)
					mu.Lock()
					results[typ] = resp
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, typ := range model.TrendingTypes {
				fmt.Printf("== %s ==\n", strings.ToUpper(string(typ)))
				if err := renderTrending(os.Stdout, results[typ], offset(lf.args(typ))); err != nil {
					return err
				}
				fmt.Println()
			}
			return nil
		}),
	}
	lf.register(cmd)
	return cmd
}

// toggleCommand builds like-content, like-artist and follow.  With --show,
// the listing the toggle affects is subscribed first and printed again once
// the invalidation has refetched it.
func toggleCommand(use, short string, show model.TrendingType, call func(*searchapi.Client, context.Context, string) (*model.StatusResponse, error)) *cobra.Command {
	var showAfter bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, s *session, args []string) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var sub *query.Subscription
			if showAfter {
				var err error
				if sub, err = s.client.Trending(searchapi.TrendingArgs{Type: show}); err != nil {
					return err
				}
				defer sub.Close()
				if _, err := waitFresh(ctx, sub); err != nil {
					return err
				}
			}

			resp, err := call(s.client, ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)

			if sub == nil {
				return nil
			}
			snap, err := waitFresh(ctx, sub)
			if err != nil {
				return err
			}
			data, _ := s.client.TrendingData(snap)
			return renderTrending(os.Stdout, data, 0)
		}),
	}
	cmd.Flags().BoolVar(&showAfter, "show", false, "Print the affected "+string(show)+" listing afterwards")
	return cmd
}

func likeContentCommand() *cobra.Command {
	return toggleCommand("like-content CONTENT_ID", "Like or un-like a piece of content", model.TrendingTop,
		(*searchapi.Client).LikeDislikeContent)
}

func likeArtistCommand() *cobra.Command {
	return toggleCommand("like-artist ARTIST_ID", "Like or un-like an artist", model.TrendingArtists,
		(*searchapi.Client).LikeDislikeArtist)
}

func followCommand() *cobra.Command {
	return toggleCommand("follow ARTIST_ID", "Follow or unfollow an artist", model.TrendingArtists,
		(*searchapi.Client).FollowUnfollowArtist)
}
