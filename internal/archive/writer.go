/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package archive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/imposter/internal/game"
)

const (
	queueSize    = 32
	writeTimeout = 5 * time.Second
)

// Writer feeds finished games to a Store from a single background goroutine.
type Writer struct {
	store *Store
	log   zerolog.Logger

	queue     chan game.GameRecord
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewWriter(store *Store, log zerolog.Logger) *Writer {
	w := &Writer{
		store: store,
		log:   log,
		queue: make(chan game.GameRecord, queueSize),
	}

	w.wg.Add(1)
	go w.run()

	return w
}

func (w *Writer) run() {
	defer w.wg.Done()

	for rec := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		id, err := w.store.RecordGame(ctx, rec)
		cancel()

		if err != nil {
			w.log.Error().Err(err).Str("room", rec.Room).Msg("archiving game failed")
			continue
		}

		w.log.Debug().Int64("game", id).Str("room", rec.Room).Msg("game archived")
	}
}

// RecordGame queues rec. When the queue is full the record is dropped.
func (w *Writer) RecordGame(rec game.GameRecord) {
	select {
	case w.queue <- rec:
	default:
		w.log.Warn().Str("room", rec.Room).Msg("archive queue full, dropping game")
	}
}

// Close flushes queued games. RecordGame must not be called afterwards.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.queue)
	})
	w.wg.Wait()
}
