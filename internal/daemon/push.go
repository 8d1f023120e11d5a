package daemon

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/crypto"
	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/store"
)

// historyPusher drains the local pending-history outbox on a fixed
// interval and pushes each batch over the event channel, encrypting per
// entry when a group key is already held (spec §4.F, §5 Ordering:
// "History-batch drains remove outbox rows only after the send has been
// enqueued").
type historyPusher struct {
	store    *store.Store
	keys     *crypto.KeyManager
	interval time.Duration
	batch    int
	log      *logrus.Entry
}

func newHistoryPusher(st *store.Store, keys *crypto.KeyManager, interval time.Duration, batch int) *historyPusher {
	return &historyPusher{
		store:    st,
		keys:     keys,
		interval: interval,
		batch:    batch,
		log:      logrus.WithField("component", "history-pusher"),
	}
}

// run ticks until ctx is cancelled, pushing through send on each tick. A
// send failure leaves the batch in the outbox for the next tick rather
// than aborting the loop, since the connection-level reconnect logic
// handles transport recovery separately.
func (p *historyPusher) run(ctx context.Context, send func([]models.HistoryEntry, []json.RawMessage) error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.pushOnce(send); err != nil {
				p.log.WithError(err).Warn("History push failed; will retry next tick")
			}
		}
	}
}

func (p *historyPusher) pushOnce(send func([]models.HistoryEntry, []json.RawMessage) error) error {
	entries, err := p.store.DrainPending(p.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	encoded := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		body, err := p.encode(e)
		if err != nil {
			return err
		}
		encoded = append(encoded, body)
	}

	if err := send(entries, encoded); err != nil {
		return err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return p.store.RemovePending(ids)
}

// encode marshals an entry encrypted under its group's content key when
// one is already held, or plaintext otherwise (a machine joining a group
// for the first time pushes plaintext until key exchange completes).
func (p *historyPusher) encode(e models.HistoryEntry) (json.RawMessage, error) {
	key, ok := p.keys.GroupKey(e.GroupName)
	if !ok {
		return json.Marshal(e)
	}
	enc, err := crypto.EncryptHistoryEntry(e, key)
	if err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}
