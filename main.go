package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/cachecmd"
	digestcmd "github.com/dtnitsch/news-digest/internal/digest"
	"github.com/dtnitsch/news-digest/internal/headlines"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "news-digest",
		Usage:          "Summarized regional news from a free-text query",
		DefaultCommand: "digest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config (default news-digest.yaml, or $NEWS_DIGEST_CONFIG)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides log.level)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "digest",
				Usage:     "Summarize the news a query asks for",
				ArgsUsage: "<query...>",
				Description: `The query names a region and optionally a topic, for example
   "sports news in delhi" or "maharashtra politics update". Without a topic
   the region's top stories are summarized; with one, every story is
   classified and only matching ones are kept.`,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "keywords",
						Usage: "also print the N most frequent keywords across the digest's articles",
					},
				},
				Action: digestcmd.DigestAction,
			},
			{
				Name:  "headlines",
				Usage: "List a region's headlines and links without summarizing",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "location",
						Aliases: []string{"l"},
						Usage:   "region identifier or name, e.g. tamil-nadu or \"west bengal\"",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "list every story instead of the top stories",
					},
					&cli.BoolFlag{
						Name:  "national",
						Usage: "list the national front page instead of a region",
					},
				},
				Action: headlines.HeadlinesAction,
			},
			{
				Name:  "cache",
				Usage: "Inspect the document cache",
				Subcommands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "Create the cache index and mirror directory if absent",
						Action: cachecmd.InitAction,
					},
					{
						Name:   "stats",
						Usage:  "Show entry counts and mirror size",
						Action: cachecmd.StatsAction,
					},
					{
						Name:      "show",
						Usage:     "Print a cached document",
						ArgsUsage: "<url>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "readable",
								Usage: "render the main content as plain text",
							},
						},
						Action: cachecmd.ShowAction,
					},
				},
			},
		},
	}
}
