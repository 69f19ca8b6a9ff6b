package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/ts4z/fanvest/catalog"
	"github.com/ts4z/fanvest/config"
	"github.com/ts4z/fanvest/mockapi"
	"github.com/ts4z/fanvest/password"
	"github.com/ts4z/fanvest/permission"
	"github.com/ts4z/fanvest/textutil"
)

const (
	// these sizes are recommended by the gorilla/securecookie package
	// https://pkg.go.dev/github.com/gorilla/securecookie#New
	hashKeySize  = 32
	blockKeySize = 32
)

var clock clockwork.Clock = clockwork.NewRealClock()

func generateKey(sz int) ([]byte, error) {
	key := make([]byte, sz)
	_, err := rand.Read(key)
	if err != nil {
		return nil, fmt.Errorf("generating random key: %w", err)
	}
	return key, nil
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(config.CatalogFile())
	if err != nil {
		return fmt.Errorf("can't load catalog: %w", err)
	}

	hashKey, blockKey := config.TokenKeys()
	bakery, err := permission.New(clock, hashKey, blockKey, config.TokenTTL())
	if err != nil {
		return fmt.Errorf("can't create bakery: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server, err := mockapi.New(&mockapi.Config{
		Store:          mockapi.NewStore(cat),
		Bakery:         bakery,
		Clock:          clock,
		AllowedOrigins: config.AllowedOrigins(),
		Registry:       reg,
	})
	if err != nil {
		return err
	}
	return server.Serve(ctx, config.ListenAddress())
}

func keygen(cmd *cobra.Command, args []string) error {
	hashKey, err := generateKey(hashKeySize)
	if err != nil {
		return fmt.Errorf("generating hash key: %w", err)
	}
	blockKey, err := generateKey(blockKeySize)
	if err != nil {
		return fmt.Errorf("generating block key: %w", err)
	}
	fmt.Printf("FANVEST_TOKEN_HASH_KEY=%s\n", base64.StdEncoding.EncodeToString(hashKey))
	fmt.Printf("FANVEST_TOKEN_BLOCK_KEY=%s\n", base64.StdEncoding.EncodeToString(blockKey))
	return nil
}

func hashPassword(cmd *cobra.Command, args []string) error {
	fmt.Fprint(os.Stderr, "Enter password: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(pwBytes) == 0 {
		return fmt.Errorf("password is required")
	}
	hashed, err := password.Hash(string(pwBytes))
	if err != nil {
		return err
	}
	fmt.Println(hashed)
	return nil
}

func checkCatalog(cmd *cobra.Command, args []string) error {
	path := config.CatalogFile()
	if len(args) == 1 {
		path = args[0]
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tARTIST\tLIKES")
	for _, c := range cat.Content {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Item.ID, textutil.Truncate(c.Item.Title, 32), c.Item.Type, c.Item.User.Username, textutil.FormatCount(int64(c.BaseLikes)))
	}
	w.Flush()
	fmt.Printf("\n%d users, %d artists, %d items, %d opportunities\n",
		len(cat.Users), len(cat.Artists), len(cat.Content), len(cat.Opportunities))
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Short: "Mock fanvest API server",
		Use:   "fanvestd",
		RunE:  serve,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Init()
		},
	}
	rootCmd.PersistentFlags().String("listen", "", "Listen address (default from FANVEST_LISTEN_ADDRESS, or :3000)")
	rootCmd.PersistentFlags().String("catalog", "", "Catalog YAML file (default is the built-in demo catalog)")
	viper.BindPFlag("listen_address", rootCmd.PersistentFlags().Lookup("listen"))
	viper.BindPFlag("catalog_file", rootCmd.PersistentFlags().Lookup("catalog"))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API (the default)",
		RunE:  serve,
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print fresh token keys as environment assignments",
		RunE:  keygen,
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for a catalog passwordHash field",
		RunE:  hashPassword,
	}

	checkCmd := &cobra.Command{
		Use:   "check-catalog [file]",
		Short: "Load a catalog, report problems and list its content",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkCatalog,
	}

	rootCmd.AddCommand(serveCmd, keygenCmd, hashCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
