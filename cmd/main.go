package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/logger"
	"gopkg.in/urfave/cli.v1"

	"drips/internal"
	"drips/internal/config"
	"drips/internal/models"
)

func main() {
	app := cli.NewApp()
	app.Name = "drips"
	app.Usage = "discover and inspect raffles on Sui"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "TOML configuration file"},
		cli.StringFlag{Name: "network, n", Usage: "testnet, mainnet, devnet or localnet (default: $DRIPS_NETWORK or testnet)"},
		cli.BoolFlag{Name: "verbose, v", Usage: "log to stderr"},
	}

	pageFlags := []cli.Flag{
		cli.IntFlag{Name: "limit", Usage: "page size"},
		cli.StringFlag{Name: "cursor", Usage: "last raffle id of the previous page"},
		cli.StringFlag{Name: "status", Value: string(models.StatusAll), Usage: "all, active or ended"},
	}

	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "run the HTTP API",
			Flags: []cli.Flag{cli.BoolFlag{Name: "watch", Usage: "also run the event watcher"}},
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				return a.Run(ctx, c.Bool("watch"))
			}),
		},
		{
			Name:  "watch",
			Usage: "forward raffle events to Kafka (or the log)",
			Action: withApp(func(ctx context.Context, _ *cli.Context, a *internal.App) error {
				return a.NewWatcher().Run(ctx)
			}),
		},
		{
			Name:  "raffles",
			Usage: "list discovered raffles",
			Flags: append([]cli.Flag{cli.BoolFlag{Name: "details", Usage: "fetch raffle details"}}, pageFlags...),
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				opts := pageOptions(c)
				opts.IncludeDetails = c.Bool("details")
				res, err := a.Service().QueryRaffles(ctx, opts)
				return printJSON(res, err)
			}),
		},
		{
			Name:      "raffle",
			Usage:     "show one raffle",
			ArgsUsage: "<raffle id>",
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				id, err := requireArg(c, "raffle id")
				if err != nil {
					return err
				}
				return printJSON(a.Service().GetRaffleDetails(ctx, id))
			}),
		},
		{
			Name:      "search",
			Usage:     "search raffles by prize name, description or collection",
			ArgsUsage: "<term>",
			Flags:     pageFlags,
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				return printJSON(a.Service().SearchRaffles(ctx, c.Args().First(), pageOptions(c)))
			}),
		},
		{
			Name:      "creator",
			Usage:     "list raffles operated by an address",
			ArgsUsage: "<address>",
			Flags:     pageFlags,
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				addr, err := requireArg(c, "address")
				if err != nil {
					return err
				}
				return printJSON(a.Service().GetRafflesByCreator(ctx, addr, pageOptions(c)))
			}),
		},
		{
			Name:      "nfts",
			Usage:     "list the rafflable objects an address owns",
			ArgsUsage: "<address>",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "limit", Usage: "page size"},
				cli.StringFlag{Name: "cursor", Usage: "server cursor from the previous page"},
				cli.BoolFlag{Name: "metadata", Usage: "fetch metadata of compatible objects"},
				cli.BoolFlag{Name: "compatible", Usage: "only list compatible objects"},
			},
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				addr, err := requireArg(c, "address")
				if err != nil {
					return err
				}
				return printJSON(a.Service().GetRafflableNFTs(ctx, addr, models.GetRafflableNFTsOptions{
					Limit:           c.Int("limit"),
					Cursor:          c.String("cursor"),
					IncludeMetadata: c.Bool("metadata"),
					OnlyCompatible:  c.Bool("compatible"),
				}))
			}),
		},
		{
			Name:      "nft",
			Usage:     "show an object's metadata",
			ArgsUsage: "<object id>",
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				id, err := requireArg(c, "object id")
				if err != nil {
					return err
				}
				return printJSON(a.Service().GetNFTMetadata(ctx, id))
			}),
		},
		{
			Name:  "house",
			Usage: "list the dynamic fields under the house object",
			Flags: []cli.Flag{cli.IntFlag{Name: "limit", Usage: "page size"}},
			Action: withApp(func(ctx context.Context, c *cli.Context, a *internal.App) error {
				return printJSON(a.Service().HouseFields(ctx, a.Config().HouseID, c.Int("limit")))
			}),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type appAction func(ctx context.Context, c *cli.Context, a *internal.App) error

// withApp loads configuration, wires the App and cancels on SIGINT/SIGTERM.
func withApp(action appAction) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		defer logger.Init("drips", c.GlobalBool("verbose"), false, io.Discard).Close()

		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := internal.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := action(ctx, c, a); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	return config.Load(c.GlobalString("network"), c.GlobalString("config"))
}

func pageOptions(c *cli.Context) models.RaffleQueryOptions {
	return models.RaffleQueryOptions{
		Limit:  c.Int("limit"),
		Cursor: c.String("cursor"),
		Status: models.StatusFilter(c.String("status")),
	}
}

func requireArg(c *cli.Context, name string) (string, error) {
	if v := c.Args().First(); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("missing %s", name)
}

func printJSON(v any, err error) error {
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
