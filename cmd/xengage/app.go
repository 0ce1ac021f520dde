package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"xengage/internal/api"
	"xengage/internal/config"
	"xengage/internal/metrics"
	"xengage/internal/queue"
	"xengage/internal/ratelimit"
	"xengage/internal/session"
	"xengage/internal/store/actionlog"
	"xengage/internal/vault"
)

// app bundles the wiring every subcommand needs.
type app struct {
	cfg    config.Config
	client *api.Client
	sess   *session.Session
	vault  *vault.Client
	limits *ratelimit.Limits
	queue  *queue.Queue
}

func loadApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w (run `xengage init` first)", cfgPath, err)
	}
	if cfg.Server.BaseURL == "" {
		return nil, fmt.Errorf("no server baseURL configured; set server.baseURL or XENGAGE_BASE_URL")
	}
	client := api.NewClient(cfg.Server.BaseURL)
	sess := session.New(client)
	if err := sess.LoadFile(cfg.Storage.SessionPath); err != nil {
		fmt.Println("warning: could not restore session:", err)
	}
	metrics.StartServer(cfg.Metrics.Addr)
	return &app{
		cfg:    cfg,
		client: client,
		sess:   sess,
		vault:  vault.New(client),
		limits: ratelimit.Defaults(),
		queue:  queue.New(),
	}, nil
}

func (a *app) requireAuth() error {
	if !a.sess.Authenticated() {
		return fmt.Errorf("not signed in; run `xengage login` first")
	}
	return nil
}

// refreshLimits pulls the server snapshot so pre-flight checks run
// against truth rather than the built-in defaults.
func (a *app) refreshLimits(ctx context.Context) error {
	observed := a.limits.CompletedSeq()
	snap, err := ratelimit.Fetch(ctx, a.client)
	if err != nil { return err }
	a.limits.Merge(snap, observed)
	return nil
}

// ticketIfCold returns a fresh unlock ticket when the vault cache is
// cold, nil when it is warm and no password is needed.
func (a *app) ticketIfCold(ctx context.Context) (*vault.UnlockTicket, error) {
	warm, err := a.vault.CachedCheck(ctx)
	if err != nil { return nil, err }
	if warm {
		return nil, nil
	}
	pw, err := promptSecret("vault password: ")
	if err != nil { return nil, err }
	return vault.NewUnlockTicket(pw), nil
}

func (a *app) openLog() *actionlog.DB {
	db, err := actionlog.Open(a.cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("warning: action journal unavailable:", err)
		return nil
	}
	return db
}

func promptLine(label string) (string, error) {
	fmt.Print(label)
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil { return "", err }
	return strings.TrimSpace(line), nil
}

func promptSecret(label string) (string, error) {
	// No terminal-control dependency; the value is read as a plain line
	// and never echoed back or logged by this program.
	s, err := promptLine(label)
	if err != nil { return "", err }
	if len(s) < 8 {
		return "", fmt.Errorf("password too short (minimum 8 characters)")
	}
	return s, nil
}
