package iec104

import (
	"fmt"
	"sync"
)

// AppName identifies the bridge application in logs.
const AppName = "Gray Logic IEC 61850 to IEC 104 bridge"

// DefaultSources are the source channels wired when none are configured.
var DefaultSources = []string{"healthStatus", "breakerPosition", "frequency"}

// AppOptions holds configuration for creating an App.
type AppOptions struct {
	// Sources resolves source channels. Required.
	Sources SourceRegistry

	// Directory resolves target channels. Required.
	Directory Directory

	// SourceIDs lists the channels to forward. Default: DefaultSources.
	SourceIDs []string

	// Suffix is the target naming suffix. Default: DefaultTargetSuffix.
	Suffix string

	// Logger is optional structured logger.
	Logger Logger

	// Metrics is optional.
	Metrics *Metrics

	// Audit is optional.
	Audit AuditRecorder
}

// App ties the forwarder and subscription manager to one
// activate/deactivate cycle.
type App struct {
	forwarder *Forwarder
	subs      *SubscriptionManager
	sourceIDs []string
	logger    Logger

	active bool
	mu     sync.Mutex
}

// NewApp creates an inactive application.
func NewApp(opts AppOptions) (*App, error) {
	if opts.Sources == nil {
		return nil, fmt.Errorf("source registry is required")
	}

	fwd, err := NewForwarder(ForwarderOptions{
		Directory: opts.Directory,
		Suffix:    opts.Suffix,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
		Audit:     opts.Audit,
	})
	if err != nil {
		return nil, err
	}

	ids := opts.SourceIDs
	if len(ids) == 0 {
		ids = DefaultSources
	}

	return &App{
		forwarder: fwd,
		subs:      NewSubscriptionManager(opts.Sources, fwd, opts.Metrics, opts.Logger),
		sourceIDs: append([]string(nil), ids...),
		logger:    opts.Logger,
	}, nil
}

// Activate starts forwarding and wires the configured sources.
// A second call without Deactivate is a no-op.
func (a *App) Activate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active {
		return
	}
	a.logInfo("activated", "app", AppName)

	a.forwarder.Start()
	wired := a.subs.Activate(a.sourceIDs)
	a.active = true

	a.logInfo("sources wired", "wired", wired, "configured", len(a.sourceIDs))
}

// Deactivate unwires all sources and stops forwarding.
func (a *App) Deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logInfo("deactivating", "app", AppName)
	a.subs.Deactivate()
	a.forwarder.Stop()
	a.active = false
}

// Subscriptions returns the app's subscription manager.
func (a *App) Subscriptions() *SubscriptionManager { return a.subs }

// Running implements StatusProvider.
func (a *App) Running() bool { return a.forwarder.Running() }

// WiredSources implements StatusProvider.
func (a *App) WiredSources() int { return a.subs.Count() }

func (a *App) logInfo(msg string, keysAndValues ...any) {
	if a.logger != nil {
		a.logger.Info(msg, keysAndValues...)
	}
}
