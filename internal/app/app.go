package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/crewsync/internal/cache"
	"github.com/five82/crewsync/internal/config"
	"github.com/five82/crewsync/internal/crewapi"
	"github.com/five82/crewsync/internal/engine"
	"github.com/five82/crewsync/internal/logging"
	"github.com/five82/crewsync/internal/logtail"
	"github.com/five82/crewsync/internal/metrics"
	"github.com/five82/crewsync/internal/prefs"
	"github.com/five82/crewsync/internal/state"
	"github.com/five82/crewsync/internal/ui"
)

// Options configure the crewsync application.
type Options struct {
	ConfigPath   string
	PrefsPath    string        // empty uses default ~/.config/crewsync/prefs.toml
	TrackedDay   string        // pins the tracked day for this run
	PollInterval time.Duration // zero uses the configured interval
	Stdout       io.Writer     // command output; nil uses os.Stdout
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// runtime is everything one command needs, built from config and prefs.
type runtime struct {
	cfg     config.Config
	prefs   prefs.Prefs
	log     *logging.ZapLogger
	metrics *metrics.Metrics
	cache   *cache.Store
	engine  *engine.Engine
}

func newRuntime(opts Options, logToStderr bool) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)

	log, err := logging.New(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Stderr: logToStderr})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	client, err := crewapi.NewClient(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("init crew api client: %w", err)
	}

	rt := &runtime{
		cfg:     cfg,
		prefs:   userPrefs,
		log:     log,
		metrics: metrics.New(),
		cache:   cache.New(cfg.CachePath),
	}
	rt.engine, err = engine.New(engine.Options{
		Fetcher: client,
		Cache:   rt.cache,
		Store:   &state.Store{},
		Logger:  log,
		Metrics: rt.metrics,
		UserID:  cfg.UserID,
		TrackedDay: func(now time.Time) string {
			return cfg.TrackedDayFor(now.Local())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	pin := strings.TrimSpace(opts.TrackedDay)
	if pin == "" {
		pin = userPrefs.TrackedDay
	}
	if pin != "" {
		rt.engine.PinTrackedDay(pin)
	}

	log.Debug("runtime ready", "endpoint", client.Endpoint(), "cache", rt.cache.Path(), "tracked_day", rt.engine.State().TrackedDay)
	return rt, nil
}

func (rt *runtime) pollInterval(opts Options) time.Duration {
	if opts.PollInterval > 0 {
		return opts.PollInterval
	}
	return rt.cfg.PollInterval
}

func (rt *runtime) close() {
	_ = rt.log.Sync()
}

// Run boots the crewsync viewer until the user quits or ctx is cancelled.
// The cached schedule is shown immediately while the poller syncs in the
// background.
func Run(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts, false)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.engine.Seed()
	poller := StartPoller(ctx, rt.engine, rt.pollInterval(opts))

	err = ui.Run(ui.Options{
		Context:   ctx,
		Engine:    rt.engine,
		Prefs:     rt.prefs,
		PrefsPath: opts.PrefsPath,
	})

	cancel()
	<-poller
	rt.engine.Wait()
	return err
}

// RunOnce runs a single sync bounded by budget, the way a background fetch
// hook would, and prints the outcome. A zero budget uses the configured one.
func RunOnce(ctx context.Context, opts Options, budget time.Duration) (engine.Result, error) {
	rt, err := newRuntime(opts, false)
	if err != nil {
		return engine.ResultFailed, err
	}
	defer rt.close()

	if budget <= 0 {
		budget = rt.cfg.BackgroundBudget
	}

	rt.engine.Seed()
	result := rt.engine.SyncWithBudget(ctx, budget)
	// An expired cycle is still finishing; let it publish before reporting.
	rt.engine.Wait()

	styles := ui.GetTheme(rt.prefs.Theme).Styles()
	renderResult(opts.stdout(), styles, result, rt.engine.State())
	return result, nil
}

// Show prints the cached schedule without touching the network. A non-empty
// day limits the output to that day.
func Show(opts Options, day string) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)
	styles := ui.GetTheme(userPrefs.Theme).Styles()

	store := cache.New(cfg.CachePath)
	snap, err := store.Load()
	if err != nil {
		return err
	}
	w := opts.stdout()
	if snap == nil {
		_, err := fmt.Fprintf(w, "No cached schedule at %s\n", store.Path())
		return err
	}
	return renderSnapshot(w, styles, *snap, strings.TrimSpace(day))
}

// Logs prints the last n entries of the crewsync log at or above level.
func Logs(opts Options, n int, level string) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := filepath.Join(cfg.LogDir, logging.LogFileName)
	entries, err := logtail.Tail(path, n, logging.ParseLevel(level))
	if err != nil {
		return err
	}
	w := opts.stdout()
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "No log entries in %s\n", path)
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}
