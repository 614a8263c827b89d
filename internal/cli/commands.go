package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/jrsteele09/nccc-portal-client/internal/utils"
	"github.com/jrsteele09/nccc-portal-client/search"
	"github.com/jrsteele09/nccc-portal-client/sessions"
	"github.com/jrsteele09/nccc-portal-client/users"
	"github.com/pkg/errors"
)

// ErrUsage is returned for an unknown command or bad arguments.
var ErrUsage = errors.New("usage")

type command struct {
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"signin":          {"sign in with email and password", (*App).signIn},
	"signup":          {"create an account", (*App).signUp},
	"signout":         {"sign out and forget the stored credential", (*App).signOut},
	"whoami":          {"show the signed-in user", (*App).whoAmI},
	"verify":          {"verify an account", (*App).verify},
	"google-url":      {"print the Google sign-in URL", (*App).googleURL},
	"google-callback": {"finish Google sign-in with the returned code", (*App).googleCallback},
	"search":          {"search contracts", (*App).search},
	"history":         {"list, delete or clear search history", (*App).historyCmd},
}

// signInCommands report the backend's own rejection message; a 401 while
// signing in is a refused attempt, not a lost session.
var signInCommands = map[string]bool{
	"signin":          true,
	"google-callback": true,
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.usage()
		return errors.Wrapf(ErrUsage, "unknown command %q", args[0])
	}
	a.signedOut.Store(false)
	if signInCommands[args[0]] {
		a.signingIn.Store(true)
		defer a.signingIn.Store(false)
		return cmd.run(a, ctx, args[1:])
	}
	return a.signedOutErr(cmd.run(a, ctx, args[1:]))
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.errOut, "usage: ncccctl <command> [flags]")
	w := tabwriter.NewWriter(a.errOut, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, commands[name].summary)
	}
	_ = w.Flush()
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// restore loads the cached session and waits for its reconciliation.
func (a *App) restore(ctx context.Context) sessions.State {
	select {
	case <-a.sessions.InitializeFromStorage(ctx):
	case <-ctx.Done():
	}
	return a.sessions.Snapshot()
}

func (a *App) signIn(ctx context.Context, args []string) error {
	fs := a.flags("signin")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("NCCC_PASSWORD"), "account password (default $NCCC_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}

	if !a.sessions.SignIn(ctx, *email, *password) {
		return errors.New(a.sessions.Snapshot().Error)
	}
	a.printUser(a.sessions.Snapshot().User)
	return nil
}

func (a *App) signUp(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	var req users.SignUpRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Password, "password", os.Getenv("NCCC_PASSWORD"), "password (default $NCCC_PASSWORD)")
	fs.StringVar(&req.ConfirmPassword, "confirm", "", "password confirmation")
	fs.StringVar(&req.FirstName, "firstname", "", "first name")
	fs.StringVar(&req.LastName, "lastname", "", "last name")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}

	if !a.sessions.SignUp(ctx, req) {
		return errors.New(a.sessions.Snapshot().Error)
	}
	fmt.Fprintf(a.out, "Account created for %s, check your email to verify it\n", req.Email)
	return nil
}

func (a *App) signOut(ctx context.Context, _ []string) error {
	a.sessions.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) whoAmI(ctx context.Context, _ []string) error {
	state := a.restore(ctx)
	if !state.Authenticated() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	a.printUser(state.User)
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	fs := a.flags("verify")
	userID := fs.String("user", "", "id of the account to verify")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}
	if *userID == "" {
		return errors.Wrap(ErrUsage, "-user is required")
	}

	a.sessions.VerifyAccount(ctx, *userID)
	if msg := a.sessions.Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	fmt.Fprintln(a.out, "Account verified")
	return nil
}

func (a *App) googleURL(context.Context, []string) error {
	authURL, state, err := a.sessions.GoogleAuthURL()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Open this URL to sign in with Google:\n%s\nstate: %s\n", authURL, state)
	return nil
}

func (a *App) googleCallback(ctx context.Context, args []string) error {
	fs := a.flags("google-callback")
	code := fs.String("code", "", "authorization code from the redirect URL")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}

	if !a.sessions.GoogleSignIn(ctx, *code) {
		return errors.New(a.sessions.Snapshot().Error)
	}
	a.printUser(a.sessions.Snapshot().User)
	return nil
}

func (a *App) search(ctx context.Context, args []string) error {
	fs := a.flags("search")
	tab := fs.String("tab", search.TabAll, "all, ai-mode, documents or contracts")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}
	query := strings.Join(fs.Args(), " ")

	state := a.restore(ctx)
	printer := &resultPrinter{out: a.out}
	a.searches.OnUpdate(printer.update)

	if _, err := a.searches.Submit(ctx, query, *tab); err != nil {
		return err
	}
	s, err := a.searches.Wait(ctx)
	if err != nil {
		return err
	}

	if s.Phase != search.PhaseComplete {
		return errors.New(s.Status)
	}
	if state.Authenticated() {
		a.history.Record(ctx, s)
	}
	return nil
}

func (a *App) historyCmd(ctx context.Context, args []string) error {
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		page, err := a.history.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUERY\tTAB\tRESULTS\tWHEN")
		for _, e := range page.History {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Query, e.Tab, e.ResultsCount, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		_ = w.Flush()
		fmt.Fprintf(a.out, "%d searches\n", page.Total)
		return nil
	case "delete":
		if len(args) != 1 {
			return errors.Wrap(ErrUsage, "history delete <id>")
		}
		if err := a.history.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Deleted")
		return nil
	case "clear":
		if err := a.history.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "History cleared")
		return nil
	default:
		return errors.Wrapf(ErrUsage, "unknown history action %q", action)
	}
}

func (a *App) printUser(u *users.Profile) {
	user := utils.Value(u)
	fmt.Fprintf(a.out, "Signed in as %s <%s> (%s)\n", user.Username, user.Email, user.Role)
}

// resultPrinter writes status changes and newly streamed results. Updates
// can arrive from the controller's consumer goroutine.
type resultPrinter struct {
	out io.Writer

	lock    sync.Mutex
	session string
	status  string
	printed int
}

func (p *resultPrinter) update(s search.Session) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if s.ID != p.session {
		p.session, p.status, p.printed = s.ID, "", 0
	}
	if len(s.Results) < p.printed {
		p.printed = 0
	}
	for _, c := range s.Results[p.printed:] {
		fmt.Fprintf(p.out, "  %s  %s  %s  %s\n", c.ContractNumber, c.Operator, c.ContractorName, c.ContractTitle)
	}
	p.printed = len(s.Results)
	if s.Status != p.status {
		p.status = s.Status
		fmt.Fprintf(p.out, "[%s] %s\n", s.Phase, s.Status)
	}
}
