package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/api"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/collab"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/config"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/identity"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/notify"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/persistence"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/recent"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/search"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/services"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/storage"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/transport"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

// tokenSourceFunc adapts a closure to identity.TokenSource, which lets the
// REST client read the token through the session before the session exists.
type tokenSourceFunc func(ctx context.Context) (string, error)

func (f tokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// App is the composition root: it owns every store and service for one
// application session.
type App struct {
	config *config.Config
	log    logging.Logger

	repos     *persistence.Repositories
	session   *services.Session
	transport *transport.WebSocket
	collab    *collab.Store
	storage   *storage.Store
	tracker   *recent.Tracker
	search    *search.Store
	notify    *notify.Center

	reader      *bufio.Reader
	unsubNotify func()
	collabUp    bool
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	repos, err := persistence.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "initializing database failed", "error", err.Error())
		return nil, err
	}

	var session *services.Session
	rest := api.NewRESTClient(cfg.ServerURL, cfg.RequestTimeout, tokenSourceFunc(func(ctx context.Context) (string, error) {
		return session.Token(ctx)
	}))
	session = services.NewSession(rest, repos.Metadata, log)

	center := notify.New(log)
	idp := identity.NewTokenProvider(session)
	ws := transport.NewWebSocket(cfg.WebSocketURL, session, log)
	collabStore := collab.New(ws, idp, center, log, collab.DefaultConfig())
	tracker := recent.New(repos.History, log)
	storageStore := storage.New(rest, center, tracker, log)
	searchStore := search.New(storageStore, repos.Searches, log)

	return &App{
		config:    cfg,
		log:       log,
		repos:     repos,
		session:   session,
		transport: ws,
		collab:    collabStore,
		storage:   storageStore,
		tracker:   tracker,
		search:    searchStore,
		notify:    center,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

// Run restores a previous session if a token is persisted, then drops into
// the REPL. Blocks until the user exits or the context is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.watchNotifications()

	if err := a.tracker.Load(ctx); err != nil {
		a.log.Warn(ctx, "loading access history failed", "error", err.Error())
	}
	if err := a.search.Load(ctx); err != nil {
		a.log.Warn(ctx, "loading search history failed", "error", err.Error())
	}

	if user, err := a.session.Restore(ctx); err != nil {
		a.log.Warn(ctx, "session restore failed", "error", err.Error())
	} else if user != nil {
		printlnFn(fmt.Sprintf("Welcome back, %s!", user.Name))
		a.startCollaboration(ctx)
	}

	printlnFn("sortedstorage CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

// Close tears down the collaboration stack and the local database.
func (a *App) Close() {
	a.stopCollaboration()
	if a.unsubNotify != nil {
		a.unsubNotify()
		a.unsubNotify = nil
	}
	if err := a.repos.Close(); err != nil {
		a.log.Warn(context.Background(), "closing database failed", "error", err.Error())
	}
}

// watchNotifications renders every new notification to the terminal. The
// subscription tracks seen ids so re-publications of the list do not reprint.
func (a *App) watchNotifications() {
	seen := make(map[string]bool)
	a.unsubNotify = a.notify.Notifications().Subscribe(func(list []notify.Notification) {
		for _, n := range list {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			if n.Progress != nil {
				continue
			}
			if n.Message != "" {
				printlnFn(fmt.Sprintf("[%s] %s: %s", n.Type, n.Title, n.Message))
			} else {
				printlnFn(fmt.Sprintf("[%s] %s", n.Type, n.Title))
			}
		}
	})
}

// startCollaboration connects the WebSocket, starts the collaboration store,
// and announces presence for the current path. Safe to call repeatedly.
func (a *App) startCollaboration(ctx context.Context) {
	if a.collabUp {
		return
	}
	if err := a.transport.Start(ctx); err != nil {
		a.log.Warn(ctx, "websocket connect failed", "error", err.Error())
	}
	a.collab.Start(ctx)
	a.collab.AnnouncePresence(ctx, a.storage.View().Get().CurrentPath)
	a.collabUp = true
}

func (a *App) stopCollaboration() {
	if !a.collabUp {
		return
	}
	a.collab.Close()
	_ = a.transport.Close()
	a.collabUp = false
}

func (a *App) isLoggedIn() bool {
	return a.session.User().Get() != nil
}

// status renders the prompt suffix: signed-in user and current path.
func (a *App) status() string {
	user := a.session.User().Get()
	if user == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", user.Name, a.storage.View().Get().CurrentPath)
}
