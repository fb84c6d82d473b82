package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/storefront/internal/app"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  login <name> <password>       log in and store the session
  google <credential>           log in with a Google ID token
  callback <access> [refresh]   adopt tokens from an external auth callback
  logout                        drop the session
  whoami                        show the logged in user
  products                      list the catalog
  product <id>                  show a product and record the view
  cart add|rm|inc|dec <id>      change the cart
  cart clear|show
  wishlist add|rm <id>          change the wishlist
  wishlist show|sync
  recent view <id>              record a product view
  recent show [count]
  order [payment-method]        order the cart contents and empty it
  watch                         keep the session fresh until interrupted

flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file (default ~/.config/storefront/config.toml)")
	apiURL := flag.String("api", "", "storefront API root (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}
	if *configPath != "" {
		_ = os.Setenv("STOREFRONT_CONFIG", *configPath)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		return 1
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: failed to initialize application: %v\n", err)
		return 1
	}
	defer application.Close()

	c := &cli{app: application, out: os.Stdout}
	if err := c.dispatch(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			return 2
		}
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		return 1
	}
	return 0
}
