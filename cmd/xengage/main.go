package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"xengage/internal/analytics"
	"xengage/internal/api"
	"xengage/internal/blacklist"
	"xengage/internal/cmdlog"
	"xengage/internal/config"
	"xengage/internal/engage"
	"xengage/internal/model"
	"xengage/internal/queue"
	"xengage/internal/ratelimit"
	"xengage/internal/reconcile"
	"xengage/internal/session"
	"xengage/internal/theme"
	"xengage/internal/vault"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "init":
		err = cmdlog.Run(cmd, cmdInit)
	case "login":
		err = cmdlog.Run(cmd, cmdLogin)
	case "logout":
		err = cmdlog.Run(cmd, cmdLogout)
	case "status":
		err = cmdlog.Run(cmd, cmdStatus)
	case "keys":
		err = cmdlog.Run(cmd, cmdKeys)
	case "analyze":
		err = cmdlog.Run(cmd, cmdAnalyze)
	case "dispatch":
		err = cmdlog.Run(cmd, cmdDispatch)
	case "queue":
		err = cmdlog.Run(cmd, cmdQueue)
	case "limits":
		err = cmdlog.Run(cmd, cmdLimits)
	case "watch":
		err = cmdlog.Run(cmd, cmdWatch)
	case "blacklist":
		err = cmdlog.Run(cmd, cmdBlacklist)
	case "monitor":
		err = cmdlog.Run(cmd, cmdMonitor)
	case "dashboard":
		err = cmdlog.Run(cmd, cmdDashboard)
	default:
		printHelp()
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: xengage <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./xengage.yaml")
	fmt.Println("  login       Sign in to the automation backend")
	fmt.Println("  logout      Sign out and clear the stored session")
	fmt.Println("  status      Show session and credential vault state")
	fmt.Println("  keys        Manage vault credentials (save|status|test|delete)")
	fmt.Println("  analyze     Analyze users who engaged with a tweet")
	fmt.Println("  dispatch    Select engagers and execute like/repost actions")
	fmt.Println("  queue       Show the server action queue")
	fmt.Println("  limits      Show rate-limit budgets")
	fmt.Println("  watch       Reconcile queue and limits on a 60s cadence")
	fmt.Println("  blacklist   Manage the blocked-user list")
	fmt.Println("  monitor     Show hourly engagement from the local journal")
	fmt.Println("  dashboard   Show today's counters")
}

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./xengage.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdLogin() error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	email := fs.String("email", "", "account email (defaults to config)")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if *email == "" {
		*email = a.cfg.Account.Email
	}
	if *email == "" {
		if *email, err = promptLine("email: "); err != nil { return err }
	}
	pw, err := promptSecret("password: ")
	if err != nil { return err }
	ctx := context.Background()
	if err := a.sess.Login(ctx, *email, pw); err != nil { return err }
	if err := a.sess.SaveFile(a.cfg.Storage.SessionPath); err != nil { return err }
	warm, err := a.vault.CachedCheck(ctx)
	if err == nil && !warm {
		fmt.Println("note: vault cache is cold; the next action will ask for your password")
	}
	fmt.Printf("Signed in as %s\n", a.sess.User().Username)
	return nil
}

func cmdLogout() error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if a.sess.Authenticated() {
		_ = a.sess.Logout(context.Background())
	}
	if err := session.ClearFile(a.cfg.Storage.SessionPath); err != nil { return err }
	fmt.Println("Signed out.")
	return nil
}

func cmdStatus() error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if !a.sess.Authenticated() {
		fmt.Println("Session: signed out")
		return nil
	}
	fmt.Printf("Session: signed in as %s\n", a.sess.User().Username)
	ctx := context.Background()
	st, err := a.vault.Status(ctx)
	if err != nil { return err }
	if st == nil {
		fmt.Println("Vault:   unset")
		return nil
	}
	warm, _ := a.vault.CachedCheck(ctx)
	cache := "cold"
	if warm { cache = "warm" }
	fmt.Printf("Vault:   configured=%v valid=%v used=%d cache=%s\n", st.Configured, st.Valid, st.UsageCount, cache)
	return nil
}

func cmdKeys() error {
	sub := ""
	if len(os.Args) > 2 {
		sub = os.Args[2]
	}
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	apiKey := fs.String("api-key", "", "platform API key")
	apiSecret := fs.String("api-secret", "", "platform API secret")
	accessToken := fs.String("access-token", "", "platform access token")
	accessSecret := fs.String("access-secret", "", "platform access token secret")
	if len(os.Args) > 3 {
		_ = fs.Parse(os.Args[3:])
	}
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	ctx := context.Background()
	switch sub {
	case "save":
		keys := vault.Keys{
			APIKey:            *apiKey,
			APISecret:         *apiSecret,
			AccessToken:       *accessToken,
			AccessTokenSecret: *accessSecret,
		}
		pw, err := promptSecret("vault password: ")
		if err != nil { return err }
		if err := a.vault.Save(ctx, keys, vault.NewUnlockTicket(pw)); err != nil { return err }
		fmt.Println("Credentials stored. The server cannot read them without your password.")
		return nil
	case "test":
		pw, err := promptSecret("vault password: ")
		if err != nil { return err }
		res, err := a.vault.Test(ctx, vault.NewUnlockTicket(pw))
		if err != nil { return err }
		if res.IsValid {
			fmt.Printf("Credentials valid, upstream handle @%s\n", res.UpstreamHandle)
		} else {
			fmt.Println("Credentials invalid:", res.ErrorMessage)
		}
		return nil
	case "delete":
		if err := a.vault.Delete(ctx); err != nil { return err }
		fmt.Println("Credentials deleted.")
		return nil
	case "status", "":
		st, err := a.vault.Status(ctx)
		if err != nil { return err }
		if st == nil {
			fmt.Println("Vault: unset")
			return nil
		}
		fmt.Printf("Vault: configured=%v valid=%v created=%s used=%d\n",
			st.Configured, st.Valid, st.CreatedAt.Format(time.RFC3339), st.UsageCount)
		return nil
	default:
		return fmt.Errorf("unknown keys subcommand %q (want save|status|test|delete)", sub)
	}
}

func cmdAnalyze() error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	tweetURL := fs.String("url", "", "tweet URL to analyze")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	ctx := context.Background()
	if err := a.refreshLimits(ctx); err != nil { return err }
	analysis, err := runAnalyze(ctx, a, *tweetURL)
	if err != nil { return err }
	fmt.Printf("Engagement: %d total, %d candidates\n", analysis.TotalEngagement, len(analysis.Engagers))
	for _, e := range analysis.Engagers {
		action := "-"
		if len(e.RecommendedActions) > 0 {
			action = string(e.RecommendedActions[0])
		}
		fmt.Printf("@%-20s score=%.2f risk=%-6s action=%s\n", e.Username, e.AIScore, model.RiskBand(e.AIScore), action)
	}
	return nil
}

// runAnalyze runs one analysis, re-prompting once if the server rejects
// for a missing vault password.
func runAnalyze(ctx context.Context, a *app, tweetURL string) (*engage.Analysis, error) {
	analyzer := engage.NewAnalyzer(a.client, a.limits)
	ticket, err := a.ticketIfCold(ctx)
	if err != nil { return nil, err }
	analysis, err := analyzer.Analyze(ctx, tweetURL, ticket)
	if api.IsPasswordRequired(err) {
		pw, perr := promptSecret("vault password: ")
		if perr != nil { return nil, perr }
		analysis, err = analyzer.Analyze(ctx, tweetURL, vault.NewUnlockTicket(pw))
	}
	return analysis, err
}

func cmdDispatch() error {
	fs := flag.NewFlagSet("dispatch", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	tweetURL := fs.String("url", "", "tweet URL to analyze")
	users := fs.String("users", "", "comma-separated engager user IDs to act on")
	random := fs.Bool("random", false, "pick 2-4 engagers at random")
	seed := fs.Int64("seed", 0, "seed for -random (0 means time-based)")
	_ = fs.Parse(os.Args[2:])
	if *users == "" && !*random {
		return fmt.Errorf("pick engagers with -users or -random")
	}
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	ctx := context.Background()
	if err := a.refreshLimits(ctx); err != nil { return err }

	analysis, err := runAnalyze(ctx, a, *tweetURL)
	if err != nil { return err }
	sel := engage.NewSelection(analysis)
	if *random {
		s := *seed
		if s == 0 { s = time.Now().UnixNano() }
		sel.Random(analysis, rand.New(rand.NewSource(s)))
	} else {
		for _, id := range strings.Split(*users, ",") {
			if id = strings.TrimSpace(id); id != "" {
				sel.Toggle(id)
			}
		}
	}
	if sel.Len() == 0 {
		return fmt.Errorf("selection is empty")
	}

	log := a.openLog()
	if log != nil { defer log.Close() }
	d := engage.NewDispatcher(a.client, a.limits, a.queue, log)
	ticket, err := a.ticketIfCold(ctx)
	if err != nil { return err }
	res, err := d.Dispatch(ctx, analysis, sel, ticket)
	if api.IsPasswordRequired(err) {
		pw, perr := promptSecret("vault password: ")
		if perr != nil { return perr }
		res, err = d.Dispatch(ctx, analysis, sel, vault.NewUnlockTicket(pw))
	}
	if err != nil { return err }

	fmt.Printf("Executed %d of %d actions\n", res.Executed, len(res.Results))
	for _, f := range res.Failures() {
		fmt.Printf("  failed %s @%s: %s\n", f.ActionType, f.TargetUsername, f.Error)
	}
	// Pull server truth right away so counters reflect the dispatch.
	if actions, err := queue.Fetch(ctx, a.client); err == nil {
		a.queue.MergeServer(actions)
	}
	return nil
}

func cmdQueue() error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	actions, err := queue.Fetch(context.Background(), a.client)
	if err != nil { return err }
	if len(actions) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}
	for _, q := range actions {
		line := fmt.Sprintf("%-9s %-7s @%-20s %s", q.Status, q.ActionType, q.TargetUsername, q.ContentPreview)
		if q.Status == model.StatusFailed && q.Error != "" {
			line += " [" + q.Error + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func cmdLimits() error {
	fs := flag.NewFlagSet("limits", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	if err := a.refreshLimits(context.Background()); err != nil { return err }
	printLimits(a.limits)
	return nil
}

func printLimits(l *ratelimit.Limits) {
	for _, op := range []ratelimit.Op{ratelimit.OpEngagerFetch, ratelimit.OpLike, ratelimit.OpRepost} {
		b := l.Bucket(op)
		line := fmt.Sprintf("%-13s 15min %d/%d  24h %d/%d",
			op, b.ShortUsed, b.ShortLimit, b.LongUsed, b.LongLimit)
		if b.NextAvailableSeconds > 0 {
			line += fmt.Sprintf("  next in %s", (time.Duration(b.NextAvailableSeconds) * time.Second).Round(time.Second))
		}
		fmt.Println(line)
	}
}

func cmdWatch() error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	r := reconcile.New(a.client, a.sess, a.limits, a.queue, a.cfg.Interval())
	fmt.Printf("Reconciling every %s, Ctrl-C to stop.\n", a.cfg.Interval())
	go func() {
		t := time.NewTicker(a.cfg.Interval())
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				counts := a.queue.Counts()
				fmt.Printf("queue pending=%d running=%d completed=%d failed=%d\n",
					counts[model.StatusPending], counts[model.StatusRunning],
					counts[model.StatusCompleted], counts[model.StatusFailed])
				printLimits(a.limits)
			}
		}
	}()
	err = r.Run(ctx)
	if ctx.Err() != nil {
		fmt.Println("Stopped.")
		return nil
	}
	return err
}

func cmdBlacklist() error {
	fs := flag.NewFlagSet("blacklist", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	add := fs.String("add", "", "username to block")
	reason := fs.String("reason", "", "reason for blocking")
	remove := fs.String("remove", "", "username to unblock")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	if err := a.requireAuth(); err != nil { return err }
	ctx := context.Background()
	bl := blacklist.New(a.client)
	var entries []blacklist.Entry
	switch {
	case *add != "":
		entries, err = bl.Add(ctx, *add, *reason)
	case *remove != "":
		entries, err = bl.Remove(ctx, *remove)
	default:
		entries, err = bl.List(ctx)
	}
	if err != nil { return err }
	if len(entries) == 0 {
		fmt.Println("Blocked users: none")
		return nil
	}
	for _, e := range entries {
		if e.Reason != "" {
			fmt.Printf("@%-20s %s\n", e.Username, e.Reason)
		} else {
			fmt.Printf("@%s\n", e.Username)
		}
	}
	return nil
}

func cmdMonitor() error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	hours := fs.Int("hours", 24, "lookback window in hours")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	log := a.openLog()
	if log == nil {
		return fmt.Errorf("action journal unavailable")
	}
	defer log.Close()
	ctx := context.Background()
	now := time.Now().UTC()
	actions, err := log.ListActions(ctx, now.Add(-time.Duration(*hours)*time.Hour), now)
	if err != nil { return err }
	b := analytics.HourlyEngagement(actions)
	for _, k := range analytics.SortedBucketKeys(b) {
		fmt.Printf("%s -> %v\n", k.Format("15:00"), b[k])
	}
	return nil
}

func cmdDashboard() error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	cfgPath := fs.String("config", "./xengage.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := loadApp(*cfgPath)
	if err != nil { return err }
	log := a.openLog()
	if log == nil {
		return fmt.Errorf("action journal unavailable")
	}
	defer log.Close()
	ctx := context.Background()
	likes, reposts, err := log.TodayCounts(ctx, time.Now().UTC())
	if err != nil { return err }
	fmt.Printf("Today: %d likes, %d reposts\n", likes, reposts)
	if a.sess.Authenticated() {
		if actions, err := queue.Fetch(ctx, a.client); err == nil {
			a.queue.MergeServer(actions)
			counts := a.queue.Counts()
			fmt.Printf("Queue: pending=%d running=%d completed=%d failed=%d\n",
				counts[model.StatusPending], counts[model.StatusRunning],
				counts[model.StatusCompleted], counts[model.StatusFailed])
		}
	}
	return nil
}
