package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"studiorent/internal/storage"
)

const persistTimeout = 5 * time.Second

// persister writes cart snapshots in the background. Only the newest pending
// snapshot is kept; older ones are superseded before they reach storage.
type persister struct {
	kv     storage.KV
	key    string
	ttl    time.Duration
	logger *zap.Logger

	pending  chan []byte
	flushReq chan chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newPersister(kv storage.KV, key string, ttl time.Duration, logger *zap.Logger) *persister {
	p := &persister{
		kv:       kv,
		key:      key,
		ttl:      ttl,
		logger:   logger,
		pending:  make(chan []byte, 1),
		flushReq: make(chan chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// submit must be serialised by the caller; the cart store calls it under its mutex.
func (p *persister) submit(snapshot []byte) {
	select {
	case <-p.pending:
	default:
	}
	select {
	case p.pending <- snapshot:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case snap := <-p.pending:
			p.write(snap)
		case ack := <-p.flushReq:
			p.drain()
			close(ack)
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	select {
	case snap := <-p.pending:
		p.write(snap)
	default:
	}
}

func (p *persister) write(snapshot []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := p.kv.Set(ctx, p.key, snapshot, p.ttl); err != nil {
		p.logger.Warn("CartStore.persist - write failed",
			zap.String("key", p.key),
			zap.Error(err))
		return
	}
	p.logger.Debug("CartStore.persist - snapshot written",
		zap.String("key", p.key),
		zap.Int("bytes", len(snapshot)))
}

// flush blocks until every snapshot submitted before the call is written.
func (p *persister) flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case p.flushReq <- ack:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) close(ctx context.Context) error {
	p.once.Do(func() { close(p.stop) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
