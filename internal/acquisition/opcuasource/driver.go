package opcuasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

const (
	stopTimeout = 5 * time.Second

	// severityBad is the top bit of an OPC UA StatusCode.
	severityBad = 0x80000000

	notifyBufferPerItem = 4
)

// Sentinel errors.
var (
	ErrNoEndpoint     = errors.New("opcuasource: endpoint is required")
	ErrAlreadyStarted = errors.New("opcuasource: already started")
)

// ChannelRegistry resolves channels to publish into.
// Satisfied by *acquisition.Service.
type ChannelRegistry interface {
	Channel(id string) (*acquisition.Channel, bool)
}

// Logger is the logging interface used by the driver.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Binding maps an OPC UA node onto an acquisition channel.
type Binding struct {
	ChannelID string
	NodeID    string
}

// Driver owns one OPC UA session and its monitored items.
type Driver struct {
	cfg      config.OPCUAConfig
	channels ChannelRegistry
	bindings []Binding
	logger   Logger

	client  *opcua.Client
	sub     *opcua.Subscription
	cancel  context.CancelFunc
	handles map[uint32]*acquisition.Channel
	started bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// New creates a driver. logger may be nil.
func New(cfg config.OPCUAConfig, channels ChannelRegistry, bindings []Binding, logger Logger) (*Driver, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	return &Driver{
		cfg:      cfg,
		channels: channels,
		bindings: append([]Binding(nil), bindings...),
		logger:   logger,
	}, nil
}

// Start connects, creates the subscription and monitors every bound node.
// Bindings whose channel is not registered are skipped with a warning.
// Any other failure tears the session down and is returned.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.Background())

	client, err := opcua.NewClient(d.cfg.Endpoint, d.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect %s: %w", d.cfg.Endpoint, err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, (len(d.bindings)+1)*notifyBufferPerItem)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: d.cfg.PublishIntervalDuration(),
	}, notifyCh)
	if err != nil {
		cleanupOnError(ctx, cancel, nil, client)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	handles := make(map[uint32]*acquisition.Channel, len(d.bindings))
	for i, b := range d.bindings {
		ch, ok := d.channels.Channel(b.ChannelID)
		if !ok {
			d.warn("opc ua binding references unknown channel", "channel", b.ChannelID, "node_id", b.NodeID)
			continue
		}

		handle := uint32(i + 1) // #nosec G115 -- binding count is small
		if err := d.monitor(ctx, sub, b.NodeID, handle); err != nil {
			cleanupOnError(ctx, cancel, sub, client)
			return err
		}
		handles[handle] = ch
		d.info("opc ua node monitored", "channel", b.ChannelID, "node_id", b.NodeID)
	}

	d.client = client
	d.sub = sub
	d.cancel = cancel
	d.handles = handles
	d.started = true

	d.wg.Add(1)
	go d.consume(runCtx, notifyCh)
	return nil
}

func (d *Driver) monitor(ctx context.Context, sub *opcua.Subscription, node string, handle uint32) error {
	nodeID, err := ua.ParseNodeID(node)
	if err != nil {
		return fmt.Errorf("parse node id %q: %w", node, err)
	}

	req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
	if sampling := d.cfg.SamplingIntervalDuration(); sampling > 0 {
		req.RequestedParameters.SamplingInterval = float64(sampling / time.Millisecond)
	}

	res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
	if err != nil {
		return fmt.Errorf("monitor node %q: %w", node, err)
	}
	if len(res.Results) == 0 {
		return fmt.Errorf("monitor node %q failed: empty result", node)
	}
	if res.Results[0].StatusCode != ua.StatusOK {
		return fmt.Errorf("monitor node %q failed: %s", node, res.Results[0].StatusCode)
	}
	return nil
}

// Stop cancels the subscription and closes the session. Safe to call
// when not started.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	cancel, sub, client := d.cancel, d.sub, d.client
	d.started = false
	d.cancel, d.sub, d.client = nil, nil, nil
	d.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer ctxCancel()

	var err error
	if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
		err = errors.Join(err, e)
	}
	if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
		err = errors.Join(err, e)
	}

	d.wg.Wait()
	return err
}

func (d *Driver) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				d.warn("opc ua notification error", "error", notif.Error)
				continue
			}
			d.processNotification(notif.Value)
		}
	}
}

func (d *Driver) processNotification(val any) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	d.mu.Lock()
	handles := d.handles
	d.mu.Unlock()

	for _, item := range data.MonitoredItems {
		if item == nil || item.Value == nil {
			continue
		}
		ch, ok := handles[item.ClientHandle]
		if !ok {
			continue
		}

		rec, err := toRecord(item.Value, ch.Kind())
		if err != nil {
			d.warn("skipping opc ua value", "channel", ch.ID(), "error", err)
			continue
		}
		ch.Publish(rec)
	}
}

// toRecord converts one data value. A bad status or missing variant yields
// the absent value.
func toRecord(dv *ua.DataValue, kind value.Kind) (acquisition.Record, error) {
	ts := dv.SourceTimestamp
	if ts.IsZero() {
		ts = dv.ServerTimestamp
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	rec := acquisition.Record{Timestamp: ts.UTC()}

	if uint32(dv.Status)&severityBad != 0 || dv.Value == nil {
		rec.Value = value.Null()
		return rec, nil
	}

	v, err := value.FromAny(kind, dv.Value.Value())
	if err != nil {
		return acquisition.Record{}, err
	}
	rec.Value = v
	return rec, nil
}

func (d *Driver) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(d.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(d.cfg.SecurityPolicy)),
		opcua.ApplicationName(d.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if d.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(d.cfg.Username, d.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func cleanupOnError(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx) //nolint:errcheck // Best effort cleanup on error path
	}
	if client != nil {
		_ = client.Close(ctx) //nolint:errcheck // Best effort cleanup on error path
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

func (d *Driver) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Driver) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
