// Package cli provides command-line access to the tracker client.
// It lets users inspect their session and job history, log in or out and
// install updates from the terminal without launching a front-end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/frontend"
	"github.com/ngtracker/ngt-desktop/history"
	"github.com/ngtracker/ngt-desktop/update"
)

// Backend is the part of the REST client the CLI needs.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (string, error)
	Self(ctx context.Context, token string) (*common.UserProfile, error)
}

// Updater finds and downloads releases.
type Updater interface {
	Current() string
	Check(ctx context.Context) (*update.Release, error)
	Download(ctx context.Context, rel *update.Release, progress func(total int64) io.Writer) error
}

// Deps are the collaborators of a CLI.
type Deps struct {
	Backend     Backend
	Sessions    *config.SessionStore
	Profiles    *config.ProfileStore
	HistoryPath string
	Updater     Updater
	// Install replaces target with the downloaded build.
	Install func(path, target string) error
}

// CLI represents the command-line interface.
type CLI struct {
	deps Deps
	out  io.Writer

	// readPassword reads a secret without echo.
	readPassword func() (string, error)
}

// New creates a new CLI instance writing to stdout.
func New(deps Deps) *CLI {
	if deps.Install == nil {
		deps.Install = update.Install
	}
	return &CLI{
		deps:         deps,
		out:          os.Stdout,
		readPassword: readTerminalPassword,
	}
}

// Status shows the remembered session and the cached profile.
func (c *CLI) Status() error {
	sess, err := c.deps.Sessions.Load()
	if err != nil {
		return err
	}
	profile, err := c.deps.Profiles.Load()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Session:\t%s\n", sessionState(sess))
	if profile == nil {
		fmt.Fprintln(w, "Profile:\tnone cached")
		return w.Flush()
	}

	fmt.Fprintf(w, "Profile:\t%s\n", profile.Username)
	if profile.Email != "" {
		fmt.Fprintf(w, "Email:\t%s\n", profile.Email)
	}
	for _, stat := range frontend.ProfileStats(profile) {
		fmt.Fprintf(w, "%s:\t%s\n", stat.Label, stat.Value)
	}
	return w.Flush()
}

func sessionState(sess *config.Session) string {
	switch {
	case sess.Token == "":
		return "logged out"
	case !sess.RememberMe:
		return "not remembered (login required at startup)"
	case account.TokenExpired(sess.Token):
		return "expired (login required at startup)"
	default:
		return "remembered"
	}
}

// History prints the most recent job reports and the totals.
func (c *CLI) History(ctx context.Context, limit int) error {
	if !common.FileExists(c.deps.HistoryPath) {
		fmt.Fprintln(c.out, "No jobs recorded yet.")
		return nil
	}

	store, err := history.Open(c.deps.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No jobs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tROUTE\tCARGO\tINCOME\tRESULT")
	fmt.Fprintln(w, "----\t-----\t-----\t------\t------")
	for _, e := range entries {
		r := e.Report
		fmt.Fprintf(w, "%s\t%s → %s\t%s\t%d\t%s\n",
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			r.SourceCityID, r.DestinationCityID, r.CargoID, r.Income, e.Outcome())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\n%d jobs: %d delivered, %d cancelled, %d not sent\n",
		stats.Total, stats.Delivered, stats.Cancelled, stats.Failed)
	return nil
}

// Login asks for the password of identifier, authenticates and remembers
// the session for the next start.
func (c *CLI) Login(ctx context.Context, identifier string) error {
	fmt.Fprintf(c.out, "Password for %s: ", identifier)
	password, err := c.readPassword()
	fmt.Fprintln(c.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	form := account.LoginForm{Identifier: strings.TrimSpace(identifier), Password: password, RememberMe: true}
	if err := form.Validate(); err != nil {
		return errors.New(common.UserMessage(err))
	}

	token, err := c.deps.Backend.Login(ctx, api.Credentials{
		Login:      form.Identifier,
		Password:   form.Password,
		RememberMe: form.RememberMe,
	})
	if err != nil {
		return errors.New(common.UserMessage(err))
	}

	if err := c.deps.Sessions.Save(&config.Session{RememberMe: true, Token: token}); err != nil {
		return err
	}

	profile, err := c.deps.Backend.Self(ctx, token)
	if err != nil || !profile.Usable() {
		common.LogWarn("Logged in but could not fetch profile: %v", err)
		fmt.Fprintln(c.out, "✓ Logged in")
		return nil
	}
	if err := c.deps.Profiles.Save(profile); err != nil {
		common.LogWarn("Failed to cache profile: %v", err)
	}
	fmt.Fprintf(c.out, "✓ Logged in as %s\n", profile.Username)
	return nil
}

// Logout forgets the session. The token is kept, like the in-app log out.
func (c *CLI) Logout() error {
	sess, err := c.deps.Sessions.Load()
	if err != nil {
		return err
	}
	if !sess.RememberMe {
		fmt.Fprintln(c.out, "Not logged in.")
		return nil
	}
	sess.RememberMe = false
	if err := c.deps.Sessions.Save(sess); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "✓ Logged out")
	return nil
}

// CheckUpdate looks for a newer release and, when install is set, downloads
// it with a progress bar and replaces target.
func (c *CLI) CheckUpdate(ctx context.Context, install bool, target string) error {
	if c.deps.Updater == nil {
		return errors.New("update checks are disabled")
	}

	rel, err := c.deps.Updater.Check(ctx)
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Fprintf(c.out, "%s is up to date (%s)\n", common.AppName, c.deps.Updater.Current())
		return nil
	}

	fmt.Fprintf(c.out, "Version %s is available (running %s)\n", rel.Version, c.deps.Updater.Current())
	if !install {
		return nil
	}

	err = c.deps.Updater.Download(ctx, rel, func(total int64) io.Writer {
		return progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionSetDescription("Downloading "+rel.AssetName),
			progressbar.OptionShowBytes(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(c.out) }),
		)
	})
	if err != nil {
		return err
	}

	if err := c.deps.Install(rel.Path, target); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✓ Installed %s\n", rel.Version)
	return nil
}

func readTerminalPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PrintHelp prints CLI usage help.
func PrintHelp() {
	fmt.Println(`Next Generation Tracker - desktop client

Usage:
  ngt-tracker [OPTIONS]

Options:
  --version         Show version and exit
  --verbose         Enable verbose logging
  --tui             Run the terminal front-end instead of the window
  --status          Show the remembered session and cached profile
  --history         Show recently recorded jobs
  --login NAME      Log in as NAME (email or username) and remember it
  --logout          Forget the remembered session
  --check-update    Check for a newer release
  --install-update  Download and install a newer release
  --help            Show this help message

Run without options to launch the window. Settings live in settings.yaml in
the data directory and may be overridden with NGT_* environment variables.`)
}
