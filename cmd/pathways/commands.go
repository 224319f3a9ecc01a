package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/pathways"
	"github.com/poiesic/pathways/config"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/search"
	"github.com/poiesic/pathways/server"
	"github.com/poiesic/pathways/storage/file"
)

func conversationFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "turn",
		Aliases: []string{"t"},
		Usage:   "Earlier conversation turn as \"user: text\" or \"assistant: text\" (repeatable)",
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find programs matching a free-text request",
		ArgsUsage: "<query>",
		Action:    runSearch,
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "region", Aliases: []string{"r"}, Usage: "Restrict results to a region"},
			&cli.IntFlag{Name: "max-results", Aliases: []string{"n"}, Usage: "Maximum number of results (0 uses the default)"},
			&cli.IntFlag{Name: "min-relevance", Usage: "Minimum relevance score 1-10 (0 uses the default)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print every pipeline stage"},
			&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
			&cli.BoolFlag{Name: "verify", Usage: "Also verify the classification codes of the results"},
		}, conversationFlag()),
	}
}

func verifyProgramsCommand() *cli.Command {
	return &cli.Command{
		Name:   "verify-programs",
		Usage:  "Check program classification codes against a request",
		Action: runVerifyPrograms,
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Student request", Required: true},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON file holding an array of records", Required: true},
			&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
		}, conversationFlag()),
	}
}

func verifyCareersCommand() *cli.Command {
	return &cli.Command{
		Name:   "verify-careers",
		Usage:  "Filter occupation codes attached to program codes",
		Action: runVerifyCareers,
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Student request", Required: true},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON file holding an array of {code, career_codes}", Required: true},
			&cli.StringFlag{Name: "program-context", Usage: "Program names the codes came from"},
			&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
		}, conversationFlag()),
	}
}

func regionsCommand() *cli.Command {
	return &cli.Command{
		Name:   "regions",
		Usage:  "List the known regions",
		Action: runRegions,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the search and verification API over HTTP",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides server.addr)"},
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:   "import",
		Usage:  "Copy the catalog files into BadgerDB",
		Action: runImport,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "BadgerDB directory (overrides data.dir)"},
		},
	}
}

func catalogPaths(cfg *config.Config) file.Paths {
	return file.Paths{
		Records:            cfg.Data.Records,
		RegionInstitutions: cfg.Data.RegionInstitutions,
		RegionSchools:      cfg.Data.RegionSchools,
	}
}

func openEngine(c *cli.Context) (*pathways.Engine, error) {
	cfg := appConfig(c)
	engine, err := pathways.NewEngine(catalogPaths(cfg), pathways.WithConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return engine, nil
}

func runSearch(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	history, err := parseTurns(c.StringSlice("turn"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := core.SearchOptions{
		MaxResults:   c.Int("max-results"),
		MinRelevance: c.Int("min-relevance"),
		Conversation: history,
	}
	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = newVerboseMonitor(os.Stderr)
	}

	ctx := c.Context
	results, err := engine.SearchWithMonitor(ctx, query, c.String("region"), opts, monitor)
	if err != nil {
		return err
	}

	if !c.Bool("verify") {
		if c.Bool("json") {
			return writeJSON(os.Stdout, results)
		}
		printResults(os.Stdout, results)
		return nil
	}

	records := make([]core.Record, 0, len(results))
	for _, r := range results {
		records = append(records, r.Record)
	}
	verified, err := engine.VerifyPrograms(ctx, records, query, history)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(os.Stdout, map[string]any{"results": results, "verified": verified})
	}
	printResults(os.Stdout, results)
	fmt.Fprintln(os.Stdout)
	printVerified(os.Stdout, verified)
	return nil
}

func runVerifyPrograms(c *cli.Context) error {
	history, err := parseTurns(c.StringSlice("turn"))
	if err != nil {
		return err
	}
	var records []core.Record
	if err := readJSONFile(c.String("input"), &records); err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	verified, err := engine.VerifyPrograms(c.Context, records, c.String("query"), history)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(os.Stdout, verified)
	}
	printVerified(os.Stdout, verified)
	return nil
}

func runVerifyCareers(c *cli.Context) error {
	history, err := parseTurns(c.StringSlice("turn"))
	if err != nil {
		return err
	}
	var sets []core.CareerCodeSet
	if err := readJSONFile(c.String("input"), &sets); err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	mappings, err := engine.VerifyCareers(c.Context, sets, c.String("query"), history, c.String("program-context"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(os.Stdout, mappings)
	}
	printMappings(os.Stdout, mappings)
	return nil
}

func runRegions(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	regions, err := engine.Regions(c.Context)
	if err != nil {
		return err
	}
	for _, r := range regions {
		fmt.Fprintln(os.Stdout, r)
	}
	return nil
}

func runServe(c *cli.Context) error {
	cfg := appConfig(c)
	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv, err := server.New(engine,
		server.WithMetrics(engine.Metrics()),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	return srv.Run(ctx, addr)
}

func runImport(c *cli.Context) error {
	cfg := appConfig(c)
	dir := cfg.Data.Dir
	if c.IsSet("dir") {
		dir = c.String("dir")
	}
	if dir == "" {
		return fmt.Errorf("a BadgerDB directory is required")
	}

	n, err := pathways.ImportCatalog(c.Context, catalogPaths(cfg), dir, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Imported %d records into %s\n", n, dir)
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// parseTurns turns "role: text" flag values into conversation turns.
func parseTurns(values []string) ([]core.Turn, error) {
	turns := make([]core.Turn, 0, len(values))
	for _, v := range values {
		role, content, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("turn %q must look like \"user: text\"", v)
		}
		var speaker core.SpeakerType
		switch strings.ToLower(strings.TrimSpace(role)) {
		case "user", "human":
			speaker = core.SpeakerTypeHuman
		case "assistant", "ai":
			speaker = core.SpeakerTypeAI
		default:
			return nil, fmt.Errorf("turn %q: unknown role %q", v, role)
		}
		turns = append(turns, core.Turn{Speaker: speaker, Content: strings.TrimSpace(content)})
	}
	return turns, nil
}
