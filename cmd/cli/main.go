// Command lh is a CLI client for the LearnHub service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/cache"
	"github.com/learnhub/learnhub-go/internal/config"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/jobs"
	"github.com/learnhub/learnhub-go/internal/learnhub"
	"github.com/learnhub/learnhub-go/internal/locale"
	"github.com/learnhub/learnhub-go/internal/region"
	"github.com/learnhub/learnhub-go/internal/session"
	"github.com/learnhub/learnhub-go/internal/upload"
)

// ---- app wiring ----

// app bundles the configured services every subcommand reaches for.
type app struct {
	cfg    config.Config
	sess   *session.Store
	auth   *learnhub.AuthService
	cols   *learnhub.CollectionService
	probs  *learnhub.ProblemService
	upload *upload.Pipeline
	jobs   *jobs.Poller
	flows  *learnhub.WorkflowService
	region region.Region
	loc    locale.Locale
}

// stderrNotifier surfaces normalized API errors without interrupting the
// command flow.
type stderrNotifier struct{}

func (stderrNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, "! "+message)
}

// stderrRedirect is the CLI stand-in for a login redirect.
type stderrRedirect struct{}

func (stderrRedirect) RedirectToLogin() {
	fmt.Fprintln(os.Stderr, "login required: run `lh login -phone <phone> -code <code>`")
}

func newApp(cfgPath, explicitRegion, explicitLocale string, verbose bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(config.Dir())
	if err != nil {
		return nil, err
	}

	loc := locale.Default(cfg.DefaultLocale)
	if locale.IsSupported(explicitLocale) {
		loc = locale.Locale(explicitLocale)
	}
	resolver := region.NewResolver(cfg.RegionHosts, cfg.Hostname, sess, cfg.DefaultRegion)
	active := resolver.Resolve(explicitRegion, loc)

	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}

	client := api.New(
		func() string { return cfg.BaseURL(string(active)) },
		api.WithTokenSource(sess),
		api.WithNotifier(stderrNotifier{}),
		api.WithLoginRedirect(stderrRedirect{}),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
	)

	c := cache.New(256, 30*time.Second)
	return &app{
		cfg:    cfg,
		sess:   sess,
		auth:   learnhub.NewAuthService(client, sess),
		cols:   learnhub.NewCollectionService(client, c),
		probs:  learnhub.NewProblemService(client, c),
		upload: upload.New(client),
		jobs:   jobs.New(client),
		flows:  learnhub.NewWorkflowService(client),
		region: active,
		loc:    loc,
	}, nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrMissingEndpoint):
		fmt.Fprintln(os.Stderr, "no backend endpoint configured for the active region (set global_base_url / cn_base_url)")
	case errors.Is(err, errs.ErrUnauthenticated):
		fmt.Fprintln(os.Stderr, "not logged in")
	case errors.Is(err, errs.ErrVersionConflict):
		fmt.Fprintln(os.Stderr, "version conflict: the problem changed on the server, fetch it and retry with the new version")
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `lh CLI
Usage:
  lh [-config file] [-region global|cn] [-locale en|zh] [-v] <cmd> [args]

Commands:
  version
  sms-send     -phone <phone>
  login        -phone <phone> -code <code>         (saves tokens)
  exchange     -code <one-time-code>
  google       -id-token <token>
  me
  logout
  region       [-set global|cn]
  locale       [-path p]                           (prints locale, or p rewritten for it)

  collections
  col-new      -name <name>
  col-rename   -id <id> -name <name>
  col-rm       -id <id>
  col-problems -id <id>
  export       -id <id> [-wait]

  prob-get     -id <id>
  prob-add     -collection <id> -file <image> [-index n]
  prob-edit    -id <id> [-base ver] [-note s] [-ocr s] [-tags a,b] [-index n] [-collection id]
  prob-rm      -id <id>
  ocr          -id <id> [-wait]

  job          -id <job-id>
  watch        -id <job-id>
  workflows
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands over the configured service stack.
func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file")
	regionFlag := flag.String("region", "", "region override (global|cn)")
	localeFlag := flag.String("locale", "", "locale override (en|zh)")
	verbose := flag.Bool("v", false, "verbose request logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	if cmd == "version" {
		fmt.Printf("lh %s (%s)\n", version, buildDate)
		return
	}

	a, err := newApp(*cfgPath, *regionFlag, *localeFlag, *verbose)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	switch cmd {
	case "sms-send":
		cmdSMSSend(ctx, a, args)
	case "login":
		cmdLogin(ctx, a, args)
	case "exchange":
		cmdExchange(ctx, a, args)
	case "google":
		cmdGoogle(ctx, a, args)
	case "me":
		cmdMe(ctx, a)
	case "logout":
		cmdLogout(a)
	case "region":
		cmdRegion(a, args)
	case "locale":
		cmdLocale(a, args)
	case "workflows":
		cmdWorkflows(ctx, a)
	case "collections":
		cmdCollections(ctx, a)
	case "col-new":
		cmdColNew(ctx, a, args)
	case "col-rename":
		cmdColRename(ctx, a, args)
	case "col-rm":
		cmdColRm(ctx, a, args)
	case "col-problems":
		cmdColProblems(ctx, a, args)
	case "export":
		cmdExport(ctx, a, args)
	case "prob-get":
		cmdProbGet(ctx, a, args)
	case "prob-add":
		cmdProbAdd(ctx, a, args)
	case "prob-edit":
		cmdProbEdit(ctx, a, args)
	case "prob-rm":
		cmdProbRm(ctx, a, args)
	case "ocr":
		cmdOCR(ctx, a, args)
	case "job":
		cmdJob(ctx, a, args)
	case "watch":
		cmdWatch(ctx, a, args)
	default:
		usage()
	}
}
