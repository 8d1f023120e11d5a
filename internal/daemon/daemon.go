package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/crypto"
	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/offlinequeue"
	"github.com/shellsync/shellsync/internal/protocol"
	"github.com/shellsync/shellsync/internal/shellwriter"
	"github.com/shellsync/shellsync/internal/store"
)

// connState is the daemon's event-channel connection state (spec §4.F
// "Disconnected -> Connecting -> Authenticating -> Connected").
type connState string

const (
	stateDisconnected   connState = "disconnected"
	stateConnecting     connState = "connecting"
	stateAuthenticating connState = "authenticating"
	stateConnected      connState = "connected"
)

// Daemon is the client-side process: it owns the local history store,
// the offline write queue, the machine's crypto identity, the hook
// socket, and the persistent event-channel connection to the sync
// service.
type Daemon struct {
	cfg Config

	store  *store.Store
	queue  *offlinequeue.Queue
	keys   *crypto.KeyManager
	rest   *restClient
	writer *shellwriter.Writer
	hooks  *hookSocket

	mu    sync.Mutex
	state connState
	t     *transport

	log *logrus.Entry
}

// New wires a Daemon from cfg, opening its local stores and loading its
// crypto identity. It does not connect to the service yet.
func New(cfg Config) (*Daemon, error) {
	cfg = cfg.WithDefaults()

	st, err := store.Open(cfg.historyDBPath())
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	q, err := offlinequeue.Open(cfg.offlineQueueDBPath())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open offline queue: %w", err)
	}

	keys, err := crypto.NewKeyManager(cfg.keysDirPath())
	if err != nil {
		st.Close()
		q.Close()
		return nil, fmt.Errorf("load crypto identity: %w", err)
	}

	d := &Daemon{
		cfg:    cfg,
		store:  st,
		queue:  q,
		keys:   keys,
		rest:   newRESTClient(cfg.ServerURL, cfg.AuthToken),
		writer: shellwriter.New(cfg.BaseDir+"/aliases.sh", cfg.BaseDir+"/shellrc"),
		state:  stateDisconnected,
		log:    logrus.WithField("component", "daemon"),
	}
	d.hooks = newHookSocket(cfg, st)
	return d, nil
}

// Close releases every resource the daemon opened. Run's caller should
// call this after Run returns.
func (d *Daemon) Close() error {
	d.hooks.Close()
	d.queue.Close()
	return d.store.Close()
}

// Run blocks, maintaining the hook socket and the event-channel
// connection (reconnecting with backoff on every drop) until ctx is
// cancelled (spec §5 "Cancellation and shutdown").
func (d *Daemon) Run(ctx context.Context) error {
	if err := writePIDFile(d.cfg.pidFilePath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer removePIDFile(d.cfg.pidFilePath())

	if err := d.hooks.Listen(); err != nil {
		return fmt.Errorf("listen on hook socket: %w", err)
	}
	go d.hooks.Serve()

	bo := newBackoff(d.cfg.ReconnectMin, d.cfg.ReconnectMax)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := d.runOneConnection(ctx); err != nil {
			d.log.WithError(err).Warn("Event channel connection dropped")
		} else {
			bo.Reset()
		}

		d.setState(stateDisconnected)
		if ctx.Err() != nil {
			return nil
		}

		delay := bo.Next()
		d.log.WithField("delay", delay).Info("Reconnecting to sync service")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runOneConnection dials, authenticates, reconciles, and then serves the
// connection's push loop, ping ticker, and read loop until one of them
// ends. A clean close (ctx cancelled, or the service closing the channel
// normally) returns nil, and the caller then resets its backoff.
func (d *Daemon) runOneConnection(ctx context.Context) error {
	d.setState(stateConnecting)

	d.setState(stateAuthenticating)
	t, success, err := dialChannel(ctx, d.cfg.ServerURL, d.cfg.AuthToken)
	if err != nil {
		return err
	}
	defer t.Close()

	d.mu.Lock()
	d.t = t
	d.mu.Unlock()

	d.setState(stateConnected)
	d.log.WithField("groups", success.Groups).Info("Authenticated with sync service")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the socket is what unblocks the read loop once ctx is
	// cancelled; the push and ping loops watch connCtx themselves.
	go func() {
		<-connCtx.Done()
		t.Close()
	}()

	if err := d.reconcile(connCtx); err != nil {
		d.log.WithError(err).Warn("Initial reconcile failed")
	}
	if _, err := d.flushOfflineQueue(connCtx); err != nil {
		d.log.WithError(err).Warn("Offline queue flush failed")
	}

	var wg sync.WaitGroup
	wg.Add(2)

	pusher := newHistoryPusher(d.store, d.keys, d.cfg.PushInterval, d.cfg.PushBatchSize)
	go func() {
		defer wg.Done()
		pusher.run(connCtx, func(_ []models.HistoryEntry, encoded []json.RawMessage) error {
			return t.sendHistoryBatch(encoded)
		})
	}()

	go func() {
		defer wg.Done()
		d.runPingLoop(connCtx, t)
	}()

	err = t.runReadLoop(d)
	cancel()
	wg.Wait()
	if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (d *Daemon) runPingLoop(ctx context.Context, t *transport) {
	ticker := time.NewTicker(d.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.sendPing(); err != nil {
				return
			}
		}
	}
}

func (d *Daemon) setState(s connState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// State reports the daemon's current connection state, for the status
// CLI surface (spec §6 "status").
func (d *Daemon) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.state)
}

// reconcile fetches the full authoritative alias set and applies it via
// the shell-writer, the idempotent path run on every auth_success and
// alias-mutation event (spec §4.F, §4.I).
func (d *Daemon) reconcile(ctx context.Context) error {
	aliases, err := d.rest.FetchAliases(ctx)
	if err != nil {
		return err
	}
	return d.writer.Apply(aliases)
}

func (d *Daemon) flushOfflineQueue(ctx context.Context) (int, error) {
	flusher := offlinequeue.NewFlusher(d.cfg.ServerURL, d.cfg.AuthToken, nil)
	return flusher.Flush(ctx, d.queue)
}

// channelHandler implementation, invoked from the transport's read loop.

func (d *Daemon) onAliasEvent(event protocol.ServerEventType) {
	d.log.WithField("event", event).Info("Alias event received; reconciling")
	if err := d.reconcile(context.Background()); err != nil {
		d.log.WithError(err).Warn("Reconcile after alias event failed")
	}
}

func (d *Daemon) onSyncRequired() {
	d.log.Info("Sync required; reconciling")
	if err := d.reconcile(context.Background()); err != nil {
		d.log.WithError(err).Warn("Reconcile after sync_required failed")
	}
}

func (d *Daemon) onHistorySync(data protocol.HistorySyncData) {
	entries := make([]models.HistoryEntry, 0, len(data.Entries))
	for _, raw := range data.Entries {
		e, err := d.decodeHistoryEntry(raw, data.Encrypted)
		if err != nil {
			d.log.WithError(err).Warn("Dropping undecodable history entry")
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return
	}
	if _, err := d.store.InsertHistoryBatch(entries); err != nil {
		d.log.WithError(err).Warn("Failed to store synced history batch")
	}
}

func (d *Daemon) decodeHistoryEntry(raw json.RawMessage, encrypted bool) (models.HistoryEntry, error) {
	if !encrypted {
		var e models.HistoryEntry
		err := json.Unmarshal(raw, &e)
		return e, err
	}

	var enc crypto.EncryptedHistoryEntry
	if err := json.Unmarshal(raw, &enc); err != nil {
		return models.HistoryEntry{}, err
	}
	key, ok := d.keys.GroupKey(enc.GroupName)
	if !ok {
		return models.HistoryEntry{}, fmt.Errorf("no group key held for %q", enc.GroupName)
	}
	return enc.Decrypt(key)
}

func (d *Daemon) onKeyRequest(data protocol.KeyRequestEventData) {
	if !d.keys.HasGroupKey(data.GroupName) {
		return
	}
	wrapped, err := d.keys.WrapGroupKey(data.GroupName, data.PublicKey)
	if err != nil {
		d.log.WithError(err).Warn("Failed to wrap group key for peer request")
		return
	}

	d.mu.Lock()
	t := d.t
	d.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.sendKeyResponse(data.GroupName, data.RequesterMachineID, wrapped); err != nil {
		d.log.WithError(err).Warn("Failed to send key_response")
	}
}

func (d *Daemon) onKeyResponse(data protocol.KeyResponseEventData) {
	if err := d.keys.UnwrapGroupKey(data.GroupName, data.WrappedKey, data.SenderPublicKey); err != nil {
		d.log.WithError(err).Warn("Failed to unwrap received group key")
	}
}
