// Command casectl is a terminal client for the case-rating API. It keeps the
// signed-in identity in a local JSON file between runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"casedesk/internal/apiclient"
	"casedesk/internal/credstore"
	"casedesk/internal/gate"
	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/ops"
	"casedesk/internal/rating"
	"casedesk/internal/sanitize"
	"casedesk/internal/state"
	"casedesk/internal/version"
)

const usage = `usage: casectl [flags] <command> [args]

commands:
  login <email>          sign in (password from -password or CASEDESK_PASSWORD)
  logout                 forget the stored identity
  status                 confirm the stored identity with the API
  worklist [search]      list cases you have not rated yet
  rate <caseId> <score>  submit a rating
  ratings                list your ratings with count and mean
  analytics              platform overview (admin)
  version                print the build version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

type cli struct {
	out      io.Writer
	store    *state.Store
	ops      *ops.Ops
	workflow *rating.Workflow
	password string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("casectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	apiURL := fs.String("api", envOr("CASEDESK_API", "http://127.0.0.1:5000/api"), "case API base URL")
	credPath := fs.String("credentials", defaultCredentialPath(), "path of the stored identity")
	scaleMax := fs.Int("scale", 5, "rating scale maximum (5 or 10)")
	timeout := fs.Duration("timeout", 15*time.Second, "API request timeout")
	password := fs.String("password", os.Getenv("CASEDESK_PASSWORD"), "password for login")
	verbose := fs.Bool("v", false, "log requests and notices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	scale, err := rating.NewScale(*scaleMax)
	if err != nil {
		return err
	}

	store := state.New(credstore.NewFile(*credPath), state.Options{PageSize: 100, ScaleMax: scale.Max, ClientTag: "cli"})
	notifier := notify.Multi{printer{w: stderr}, notify.LogNotifier{Tag: "cli"}}
	c := &cli{
		out:      stdout,
		store:    store,
		ops:      ops.New(apiclient.New(*apiURL, *timeout), store, notifier, ops.Options{Scale: scale}),
		workflow: rating.NewWorkflow(scale),
		password: *password,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		c.ops.LogoutUser(ctx)
		return nil
	case "status":
		return c.status(ctx)
	case "worklist":
		return c.worklist(ctx, strings.Join(rest, " "))
	case "rate":
		return c.rate(ctx, rest)
	case "ratings":
		return c.ratings(ctx)
	case "analytics":
		return c.analytics(ctx)
	case "version":
		fmt.Fprintln(stdout, version.Current())
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// printer shows notices on the terminal.
type printer struct{ w io.Writer }

func (p printer) Notify(n notify.Notice) {
	fmt.Fprintf(p.w, "[%s] %s\n", n.Level, n.Message)
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <email>", errUsage)
	}
	res, err := c.ops.Login(ctx, args[0], c.password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s (%s)\n", res.User.Email, state.RoleLabel(res.User.Role))
	return nil
}

func (c *cli) status(ctx context.Context) error {
	if !c.ops.CheckAuthStatus(ctx) {
		fmt.Fprintln(c.out, "not signed in")
		return nil
	}
	u := c.store.Snapshot().Session.User
	fmt.Fprintf(c.out, "signed in as %s (%s)\n", u.Email, state.RoleLabel(u.Role))
	return nil
}

// signedIn restores the stored identity and applies the access gate.
func (c *cli) signedIn(ctx context.Context, role models.Role) error {
	if !c.ops.Rehydrate(ctx) {
		return ops.ErrNotSignedIn
	}
	v := gate.Evaluate(c.store.Snapshot().Session, gate.Requirement{Role: role})
	if v.Outcome != gate.Granted {
		return fmt.Errorf("%s role required", role)
	}
	return nil
}

func (c *cli) worklist(ctx context.Context, search string) error {
	if err := c.signedIn(ctx, models.RoleUser); err != nil {
		return err
	}
	if err := c.loadWork(ctx); err != nil {
		return err
	}
	snap := c.store.Snapshot()
	work := state.Search(state.Worklist(snap), search)
	for _, cs := range work {
		summary := sanitize.PlainText(cs.Description)
		if r := []rune(summary); len(r) > 60 {
			summary = string(r[:60]) + "…"
		}
		fmt.Fprintf(c.out, "%s\t%s\t%s\n", cs.ID, cs.Title, summary)
	}
	fmt.Fprintf(c.out, "%d of %d unrated\n", len(work), len(state.Worklist(snap)))
	return nil
}

// loadWork refreshes ratings before cases, like the rater dashboard.
func (c *cli) loadWork(ctx context.Context) error {
	if _, err := c.ops.FetchUserRatings(ctx); err != nil {
		return err
	}
	_, err := c.ops.FetchQuestions(ctx, models.DefaultCaseFilters(), 1, c.store.Options().PageSize)
	return err
}

func (c *cli) rate(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: rate <caseId> <score>", errUsage)
	}
	score, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: score must be a number", errUsage)
	}
	if err := c.signedIn(ctx, models.RoleUser); err != nil {
		return err
	}
	id := args[0]
	if _, err := c.workflow.Select(id, score); err != nil {
		return err
	}
	uid := c.store.Snapshot().Session.UserID()
	if _, err := c.workflow.Submit(ctx, id, uid, func(ctx context.Context, score int) error {
		return c.ops.SubmitRating(ctx, id, score)
	}); err != nil {
		return err
	}
	if err := c.loadWork(ctx); err != nil {
		return err
	}
	snap := c.store.Snapshot()
	fmt.Fprintf(c.out, "rated %s %d/%d; %d cases left\n", id, score, c.workflow.Scale().Max, len(state.Worklist(snap)))
	return nil
}

func (c *cli) ratings(ctx context.Context) error {
	if err := c.signedIn(ctx, models.RoleUser); err != nil {
		return err
	}
	if _, err := c.ops.FetchUserRatings(ctx); err != nil {
		return err
	}
	l := c.store.Snapshot().Ledger
	for _, r := range l.Ratings {
		title := ""
		if r.Case != nil {
			title = r.Case.Title
		}
		fmt.Fprintf(c.out, "%s\t%s\t%d\t%s\n", r.CaseID, title, r.Score, r.CreatedAt.Format(time.DateOnly))
	}
	fmt.Fprintf(c.out, "%d ratings, mean %.2f/%d\n", l.Count, l.Mean, l.Scale)
	return nil
}

func (c *cli) analytics(ctx context.Context) error {
	if err := c.signedIn(ctx, models.RoleAdmin); err != nil {
		return err
	}
	if _, err := c.ops.FetchQuestions(ctx, models.DefaultCaseFilters(), 1, c.store.Options().PageSize); err != nil {
		return err
	}
	if _, err := c.ops.FetchUserStats(ctx); err != nil {
		return err
	}
	if _, err := c.ops.FetchRatingStats(ctx); err != nil {
		return err
	}
	a := state.Analyze(c.store.Snapshot(), time.Now())
	fmt.Fprintf(c.out, "users\t%d\n", a.TotalUsers)
	fmt.Fprintf(c.out, "cases\t%d (%d active, %d today)\n", a.TotalCases, a.ActiveCases, a.CasesToday)
	fmt.Fprintf(c.out, "ratings\t%d (mean %.2f, %.0f%% of cases rated)\n", a.TotalRatings, a.AverageRating, a.CompletionRate)
	for i, cs := range a.TopRated {
		fmt.Fprintf(c.out, "top %d\t%s\t%.2f\n", i+1, cs.Title, cs.AverageRating)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".casedesk-credentials.json"
	}
	return filepath.Join(dir, "casedesk", "credentials.json")
}
