package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"maze.io/x/duration"

	"github.com/ts4z/fanvest/config"
	"github.com/ts4z/fanvest/credential"
	"github.com/ts4z/fanvest/protocol"
	"github.com/ts4z/fanvest/query"
	"github.com/ts4z/fanvest/searchapi"
	"github.com/ts4z/fanvest/transport"
)

var (
	clock clockwork.Clock = clockwork.NewRealClock()

	grace     time.Duration
	timeout   time.Duration
	showStats bool
)

// session is what every command needs: a client and the token file behind
// it.
type session struct {
	client *searchapi.Client
	creds  *credential.File
}

func newSession() (*session, error) {
	creds := credential.NewFile(config.TokenFile())
	// An explicit FANVEST_TOKEN wins over the file.
	tokens := credential.Chain{credential.Static(config.Token()), creds}
	tr, err := transport.NewHTTP(config.APIBaseURL(), transport.WithDecorator(transport.BearerToken(tokens)))
	if err != nil {
		return nil, err
	}

	cf := config.EngineConfig()
	cf.Clock = clock
	if grace > 0 {
		cf.RetainFor = grace
	}
	c, err := searchapi.NewClient(tr, cf)
	if err != nil {
		return nil, err
	}
	log.Debugf("talking to %s", tr.BaseURL())
	return &session{client: c, creds: creds}, nil
}

func (s *session) Close() {
	s.client.Close()
}

// withSession runs fn with a session and a context that ends on interrupt.
func withSession(fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()
		err = fn(ctx, s, args)
		if showStats {
			fmt.Fprintln(os.Stderr)
			renderStats(os.Stderr)
		}
		return err
	}
}

// waitFresh waits for a subscription to settle: fresh data or an error.
func waitFresh(ctx context.Context, sub *query.Subscription) (query.Snapshot, error) {
	settled := func(s query.Snapshot) bool {
		return (s.Status == query.StatusSuccess && !s.Stale) || s.Status == query.StatusError
	}
	s := sub.Current()
	for !settled(s) {
		var ok bool
		select {
		case s, ok = <-sub.Updates():
			if !ok {
				return s, query.ErrDisposed
			}
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
	if s.Status == query.StatusError {
		return s, s.Err
	}
	return s, nil
}

func main() {
	rootCmd := &cobra.Command{
		Short:         "Browse trending content and back artists from the terminal",
		Use:           "fanvestctl",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Init()
		},
	}
	rootCmd.PersistentFlags().String("api", "", "API base URL (default from FANVEST_API_BASE_URL, or "+protocol.DefaultBaseURL+")")
	viper.BindPFlag("api_base_url", rootCmd.PersistentFlags().Lookup("api"))
	rootCmd.PersistentFlags().Func("grace", "How long unwatched results stay cached (e.g. 90s, 2m, 1h)", func(s string) error {
		d, err := duration.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("can't parse grace period %q: %w", s, err)
		}
		if d < 0 {
			return fmt.Errorf("grace period can't be negative")
		}
		grace = time.Duration(d)
		return nil
	})
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "How long to wait for the API")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "Print cache counters to stderr when done")

	rootCmd.AddCommand(loginCommand(), logoutCommand())
	rootCmd.AddCommand(trendingCommand(), dashboardCommand())
	rootCmd.AddCommand(likeContentCommand(), likeArtistCommand(), followCommand())
	rootCmd.AddCommand(investCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
