package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/liimport/internal/bridge"
	"github.com/go-scripts/liimport/internal/browser"
	"github.com/go-scripts/liimport/internal/config"
	"github.com/go-scripts/liimport/internal/importer"
	"github.com/go-scripts/liimport/internal/normalize"
	"github.com/go-scripts/liimport/internal/protocol"
	"github.com/go-scripts/liimport/internal/scraper"
)

// CLIFlags is the command line surface: one import per invocation.
type CLIFlags struct {
	URL        string `help:"LinkedIn profile URL to import." short:"u"`
	ActiveTab  bool   `help:"Scrape the currently active tab instead of opening one." name:"active-tab"`
	Token      string `help:"Bearer token forwarded to the normalization API."`
	Model      string `help:"Preferred model hint forwarded to the normalization API."`
	Config     string `help:"Path to the configuration file."`
	AppOrigin  string `help:"Host application origin for destination-tab resolution." name:"app-origin"`
	SetAPIBase string `help:"Persist a new normalization API base address and exit." name:"set-api-base"`
	Out        string `help:"Directory for session artifacts (payload/result JSON)." short:"o"`
	Headed     bool   `help:"Run the browser with a visible window."`
	Debug      bool   `help:"Enable debug logging." default:"false"`
}

func main() {
	var flags CLIFlags
	kong.Parse(&flags)

	if flags.Debug {
		log.SetLevel(log.DebugLevel)
	}

	store, err := config.NewStore(flags.Config)
	if err != nil {
		log.Fatal("config store", "err", err)
	}
	resolver := config.NewResolver(store, nil)

	// Configuration writes go through the same message protocol UI callers
	// use.
	if flags.SetAPIBase != "" {
		msg, err := protocol.NewMessage(protocol.KindConfigSet, map[string]string{"apiBase": flags.SetAPIBase})
		if err != nil {
			log.Fatal("build config-set", "err", err)
		}
		if resp := resolver.HandleMessage(msg); !resp.OK {
			log.Fatal("config-set rejected", "err", resp.Error)
		}
		fmt.Printf("api base set to %s\n", flags.SetAPIBase)
		return
	}

	if flags.URL == "" && !flags.ActiveTab {
		log.Fatal("either --url or --active-tab is required")
	}

	br, err := browser.New(browser.Options{Headless: !flags.Headed})
	if err != nil {
		log.Fatal("start browser", "err", err)
	}
	defer br.Close()

	imp := importer.New(
		br,
		scraper.NewEngine(br),
		bridge.New(br),
		resolver,
		func(apiBase string) importer.Normalizer { return normalize.NewClient(apiBase) },
	)
	imp.AppOrigin = flags.AppOrigin

	sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	imp.OnTransition = func(state importer.State) {
		sp.Suffix = fmt.Sprintf(" %s", state)
	}
	sp.Start()

	var artifacts *importer.ArtifactWriter
	if flags.Out != "" {
		artifacts, err = importer.NewArtifactWriter(flags.Out)
		if err != nil {
			sp.Stop()
			log.Fatal("artifact writer", "err", err)
		}
	}

	ctx := context.Background()

	if flags.ActiveTab {
		payload, err := imp.ScrapeActiveTab(ctx)
		sp.Stop()
		if err != nil {
			log.Fatal("scrape active tab", "err", err)
		}
		if artifacts != nil {
			if werr := artifacts.Write("active-tab", "payload", payload); werr != nil {
				log.Warn("artifact write failed", "err", werr)
			}
		}
		printJSON(payload)
		return
	}

	result := imp.Run(ctx, importer.Request{
		ProfileURL: flags.URL,
		Token:      flags.Token,
		Model:      flags.Model,
	})
	sp.Stop()

	if artifacts != nil {
		if werr := artifacts.Write(result.SessionID, "result", result); werr != nil {
			log.Warn("artifact write failed", "err", werr)
		}
	}
	printJSON(result)
	if !result.OK {
		os.Exit(1)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal("encode output", "err", err)
	}
	fmt.Println(string(data))
}
