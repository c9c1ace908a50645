// Package main is the sworddrill CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/config"
	clioutput "github.com/hyperjump/sworddrill/internal/cli"
	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/reference"
	"github.com/hyperjump/sworddrill/internal/server"
	"github.com/hyperjump/sworddrill/internal/storage"
	"github.com/hyperjump/sworddrill/pkg/utils"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format (text, json)",
		Value:   "text",
	}
	return &cli.App{
		Name:    "sworddrill",
		Usage:   "Bible reference lookup and verse search",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.DefaultPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the HTTP API",
				Action: serverCommand,
			},
			{
				Name:      "lookup",
				Usage:     "Print the verses of a reference, e.g. \"John 3:16\" or jhn.3.16-18",
				ArgsUsage: "<reference>",
				Action:    lookupCommand,
				Flags: []cli.Flag{
					outputFlag,
					&cli.BoolFlag{Name: "html", Usage: "Print verses with HTML markup"},
				},
			},
			{
				Name:      "search",
				Usage:     "Search verse text; a query that is a reference prints that passage",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					outputFlag,
					&cli.StringFlag{Name: "server", Usage: "Query a running server at this URL instead of opening the database"},
					&cli.IntFlag{Name: "width", Usage: "Truncate matches to this many characters (0 for no limit)", Value: 0},
				},
			},
			{
				Name:   "books",
				Usage:  "List the books of the Bible",
				Action: booksCommand,
				Flags:  []cli.Flag{outputFlag},
			},
			{
				Name:      "book",
				Usage:     "Show a book and its chapters",
				ArgsUsage: "<name or abbreviation>",
				Action:    bookCommand,
				Flags:     []cli.Flag{outputFlag},
			},
			{
				Name:   "import",
				Usage:  "Load verses from tab-separated files and rebuild the search index",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.PathFlag{Name: "verses", Usage: "Plain-text verses (book, chapter, verse, text)", Required: true},
					&cli.PathFlag{Name: "html", Usage: "Verses with HTML markup, same columns"},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the search index from the database",
				Action: reindexCommand,
			},
			{
				Name:   "status",
				Usage:  "Show corpus counts and disk usage",
				Action: statusCommand,
				Flags:  []cli.Flag{outputFlag},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "sworddrill %s\n", version)
					return nil
				},
			},
		},
	}
}

// loadConfig loads the --config file. When the path is the default, a
// config.yaml in the working directory takes precedence (for development).
// A missing file yields defaults plus environment overrides.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	if path == config.DefaultPath() {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				path = local
			}
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	return cfg, path, nil
}

// setup loads config, builds the logger and opens components.
func setup(c *cli.Context, freshIndex bool) (*config.Config, *zap.Logger, *Components, error) {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.String("database", cfg.Storage.DatabasePath))

	components, err := initializeComponents(c.Context, cfg, logger, freshIndex)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, components, nil
}

func writer(c *cli.Context) (*clioutput.Writer, error) {
	format, err := clioutput.ParseOutputFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	color := false
	if f, ok := c.App.Writer.(*os.File); ok && format == clioutput.OutputText {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			color = true
		}
	}
	return clioutput.NewWriter(c.App.Writer, format, color), nil
}

func queryArg(c *cli.Context, what string) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("missing %s", what)
	}
	return q, nil
}

func serverCommand(c *cli.Context) error {
	cfg, logger, components, err := setup(c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	srv, err := server.NewServer(components.Engine, components.Storage, components.Index, cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		_ = srv.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func lookupCommand(c *cli.Context) error {
	raw, err := queryArg(c, "reference")
	if err != nil {
		return err
	}
	ref, err := reference.Parse(raw)
	if err != nil {
		return err
	}
	out, err := writer(c)
	if err != nil {
		return err
	}
	format := models.PlainText
	if c.Bool("html") {
		format = models.HTML
	}

	_, logger, components, err := setup(c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	p, err := components.Engine.Passage(c.Context, ref, format)
	if err != nil {
		return err
	}
	if p.Empty() {
		return fmt.Errorf("'%s' was not found.", p.Reference.String())
	}
	return out.Passage(p)
}

func searchCommand(c *cli.Context) error {
	q, err := queryArg(c, "query")
	if err != nil {
		return err
	}
	out, err := writer(c)
	if err != nil {
		return err
	}
	out.WithMaxHitLength(c.Int("width"))

	if u := c.String("server"); u != "" {
		return searchViaHTTP(c.Context, c.App.Writer, u, q, c.String("output"))
	}

	_, logger, components, err := setup(c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	res, err := components.Engine.Lookup(c.Context, q, models.PlainText)
	if err != nil {
		return err
	}
	return out.Lookup(res)
}

// searchViaHTTP asks a running server, printing its matches as-is.
func searchViaHTTP(ctx context.Context, w io.Writer, serverURL, q, output string) error {
	endpoint := strings.TrimRight(serverURL, "/") + "/api/search?q=" + url.QueryEscape(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if output == string(clioutput.OutputJSON) {
		_, err := w.Write(body)
		return err
	}

	var data struct {
		Matches []struct {
			Reference string `json:"reference"`
			Text      string `json:"text"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(data.Matches) == 0 {
		fmt.Fprintln(w, "No matches.")
	}
	for _, m := range data.Matches {
		fmt.Fprintf(w, "%s\n    %s\n", m.Reference, utils.Emphasize(m.Text, "", ""))
	}
	return nil
}

func booksCommand(c *cli.Context) error {
	out, err := writer(c)
	if err != nil {
		return err
	}
	_, logger, components, err := setup(c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	books, err := components.Engine.AllBooks(c.Context)
	if err != nil {
		return err
	}
	return out.Books(books)
}

func bookCommand(c *cli.Context) error {
	name, err := queryArg(c, "book name")
	if err != nil {
		return err
	}
	out, err := writer(c)
	if err != nil {
		return err
	}
	_, logger, components, err := setup(c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	book, chapters, err := components.Engine.Book(c.Context, name)
	if err != nil {
		return err
	}
	return out.Book(book, chapters)
}

func importCommand(c *cli.Context) error {
	_, logger, components, err := setup(c, true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	ctx := c.Context
	imp := components.Importer
	if err := imp.SeedCanon(ctx); err != nil {
		return err
	}
	n, err := imp.ImportFile(ctx, c.Path("verses"), models.PlainText)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Imported %d verses\n", n)

	if path := c.Path("html"); path != "" {
		n, err := imp.ImportFile(ctx, path, models.HTML)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Imported %d html verses\n", n)
	}

	indexed, err := imp.Reindex(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d verses\n", indexed)
	return nil
}

func reindexCommand(c *cli.Context) error {
	_, logger, components, err := setup(c, true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	n, err := components.Importer.Reindex(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d verses\n", n)
	return nil
}

func statusCommand(c *cli.Context) error {
	out, err := writer(c)
	if err != nil {
		return err
	}
	cfg, logger, components, err := setup(c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer components.Close()

	ctx := c.Context
	st := clioutput.Status{Database: cfg.Storage.DatabasePath, Index: cfg.Storage.BleveIndexPath}
	if st.Books, err = components.Storage.CountBooks(ctx); err != nil {
		return wrapStorage("count books", err)
	}
	if st.Verses, err = components.Storage.CountVerses(ctx, models.PlainText); err != nil {
		return wrapStorage("count verses", err)
	}
	if st.HTMLVerses, err = components.Storage.CountVerses(ctx, models.HTML); err != nil {
		return wrapStorage("count html verses", err)
	}
	if st.IndexedDocs, err = components.Index.DocCount(); err != nil {
		return fmt.Errorf("index doc count: %w", err)
	}
	if st.DiskBytes, err = storage.Footprint(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err != nil {
		return err
	}
	return out.Status(st)
}

func wrapStorage(op string, err error) error {
	var se *models.StorageError
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
