// Command gcms runs the government contract manager: the HTTP API plus a few
// maintenance commands that work directly on the configured storage.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gcms/internal/adapters/httpapi"
	"gcms/internal/app"
	"gcms/internal/config"
	"gcms/internal/export"
	"gcms/internal/pricing"
	"gcms/internal/relations"
	"gcms/internal/samgov"
	"gcms/pkg/domain"
)

const usage = `usage: gcms <command> [flags]

commands:
  serve                      run the HTTP API
  list <collection>          print a collection as JSON
  import <sam.gov url>       add an opportunity from a SAM.gov link
  price [flags]              compute a price build-up
  integrity                  list references to missing opportunities
  export [flags]             write a pricing or opportunity workbook, or a proposal draft
`

var (
	exitFunc = os.Exit
	// serveHTTP runs srv until ctx is cancelled.
	serveHTTP = func(ctx context.Context, srv *http.Server) error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
)

// errUsage marks failures caused by bad arguments; they exit with 2.
var errUsage = errors.New("usage")

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"serve":     runServe,
	"list":      runList,
	"import":    runImport,
	"price":     runPrice,
	"integrity": runIntegrity,
	"export":    runExport,
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = io.WriteString(stderr, usage)
		return 2
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		_, _ = io.WriteString(stdout, usage)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", name, usage)
		return 2
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd(ctx, args[1:], stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "gcms %s: %v\n", name, err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("gcms "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func openApp(ctx context.Context, stderr io.Writer, reg prometheus.Registerer) (*app.App, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	a, err := app.Open(ctx, cfg, cfg.Logger(stderr), reg)
	if err != nil {
		return nil, config.Config{}, err
	}
	return a, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServe(ctx context.Context, args []string, _, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	addr := fs.String("addr", "", "listen address (overrides GCMS_HTTP_ADDR)")
	if err := parse(fs, args); err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a, cfg, err := openApp(ctx, stderr, reg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if *addr == "" {
		*addr = cfg.HTTPAddr
	}
	if _, err := a.CheckSession(ctx); err != nil {
		a.Logger.Warn("session check failed", "error", err)
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.New(a, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.Logger.Info("listening", "addr", *addr)
	return serveHTTP(ctx, srv)
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return usageErr("list <%s>", strings.Join(app.Collections, "|"))
	}
	a, _, err := openApp(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	items, err := a.List(args[0])
	if errors.Is(err, app.ErrUnknownCollection) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err != nil {
		return err
	}
	return printJSON(stdout, items)
}

func runImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return usageErr("import <sam.gov opportunity url>")
	}
	if !samgov.ValidURL(args[0]) {
		return usageErr("%q is not a SAM.gov opportunity link", args[0])
	}
	a, _, err := openApp(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	opp, err := a.Importer.ImportURL(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(stdout, opp)
}

// lineItems collects repeated name:number:number flags.
type lineItems [][3]string

func (l *lineItems) String() string { return fmt.Sprint(*l) }

func (l *lineItems) Set(v string) error {
	parts := strings.Split(v, ":")
	if len(parts) < 3 {
		return fmt.Errorf("%q: want name:number:number", v)
	}
	n := len(parts)
	name := strings.Join(parts[:n-2], ":")
	for _, p := range parts[n-2:] {
		if _, err := strconv.ParseFloat(p, 64); err != nil {
			return fmt.Errorf("%q: %w", v, err)
		}
	}
	*l = append(*l, [3]string{name, parts[n-2], parts[n-1]})
	return nil
}

func number(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func runPrice(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("price", stderr)
	var labor, materials lineItems
	fs.Var(&labor, "labor", "labor line role:rate:hours (repeatable)")
	fs.Var(&materials, "material", "material line item:quantity:unitPrice (repeatable)")
	overhead := fs.Float64("overhead", 0, "overhead percentage")
	profit := fs.Float64("profit", 0, "profit percentage")
	asJSON := fs.Bool("json", false, "print the breakdown as JSON")
	save := fs.Bool("save", false, "store the calculation")
	opportunity := fs.String("opportunity", "", "opportunity id for -save")
	if err := parse(fs, args); err != nil {
		return err
	}
	pc := domain.PricingCalculation{
		OpportunityID: *opportunity,
		LaborRates:    []domain.LaborRate{},
		Materials:     []domain.Material{},
		Overhead:      *overhead,
		Profit:        *profit,
	}
	for _, l := range labor {
		pc.LaborRates = append(pc.LaborRates, domain.LaborRate{Role: l[0], Rate: number(l[1]), Hours: number(l[2])})
	}
	for _, m := range materials {
		pc.Materials = append(pc.Materials, domain.Material{Item: m[0], Quantity: number(m[1]), UnitPrice: number(m[2])})
	}
	if *save {
		a, _, err := openApp(ctx, stderr, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		if pc, err = a.Workspace.Pricing.Create(ctx, pc); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "saved pricing calculation %s\n", pc.ID)
	}
	b := pricing.Of(pc)
	if *asJSON {
		return printJSON(stdout, b)
	}
	for _, row := range []struct {
		label string
		v     float64
	}{
		{"Labor", b.LaborTotal},
		{"Materials", b.MaterialsTotal},
		{"Subtotal", b.Subtotal},
		{"Overhead", b.OverheadAmount},
		{"Profit", b.ProfitAmount},
		{"Total", b.Total},
	} {
		if _, err := fmt.Fprintf(stdout, "%-10s $%s\n", row.label, export.Money(row.v)); err != nil {
			return err
		}
	}
	return nil
}

func runIntegrity(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 0 {
		return usageErr("integrity takes no arguments")
	}
	a, _, err := openApp(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	dangling := a.Integrity()
	if len(dangling) == 0 {
		_, err := fmt.Fprintln(stdout, "no dangling references")
		return err
	}
	for _, d := range dangling {
		if _, err := fmt.Fprintf(stdout, "%s %s -> missing opportunity %s\n", d.Entity, d.ID, d.OpportunityID); err != nil {
			return err
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	pricingID := fs.String("pricing", "", "pricing calculation id to export as xlsx")
	opportunities := fs.Bool("opportunities", false, "export every opportunity as xlsx")
	proposal := fs.String("proposal", "", "opportunity id to draft a proposal for")
	format := fs.String("format", "markdown", "proposal format: markdown|word")
	out := fs.String("o", "", "output file (required for xlsx, stdout for proposals when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	modes := 0
	for _, set := range []bool{*pricingID != "", *opportunities, *proposal != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return usageErr("choose exactly one of -pricing, -opportunities or -proposal")
	}
	if *proposal == "" && *out == "" {
		return usageErr("-o is required for workbook exports")
	}
	if *proposal != "" && *format != "markdown" && *format != "word" {
		return usageErr("unknown format %q", *format)
	}

	a, _, err := openApp(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	opps := a.Opportunities.Opportunities.List()

	var write func(io.Writer) error
	switch {
	case *pricingID != "":
		pc, ok := a.Workspace.Pricing.Get(*pricingID)
		if !ok {
			return fmt.Errorf("pricing calculation %s: %w", *pricingID, domain.ErrNotFound)
		}
		title := relations.OpportunityLabel(opps, pc.OpportunityID)
		write = func(w io.Writer) error { return export.WritePricingWorkbook(w, title, pc) }
	case *opportunities:
		write = func(w io.Writer) error { return export.WriteOpportunitiesWorkbook(w, opps) }
	default:
		opp, ok := relations.FindOpportunity(opps, *proposal)
		if !ok {
			return fmt.Errorf("opportunity %s: %w", *proposal, domain.ErrNotFound)
		}
		var pc domain.PricingCalculation
		if pcs := relations.PricingForOpportunity(a.Workspace.Pricing.List(), opp.ID); len(pcs) > 0 {
			pc = pcs[0]
		}
		sections := export.GenerateProposal(opp, pc)
		text := export.MarkdownContent(sections)
		if *format == "word" {
			text = export.WordContent(sections)
		}
		write = func(w io.Writer) error {
			_, err := io.WriteString(w, text)
			return err
		}
	}

	if *out == "" {
		return write(stdout)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
