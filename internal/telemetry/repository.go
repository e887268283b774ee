package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*Event
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("Telemetry repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*Event, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	// Periodic flushing only makes sense when records are batched
	if cfg.BatchSize > 1 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) Record(event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, event)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Events(ctx context.Context, limit int) ([]Event, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectEventsSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ts   int64
			kind string
			e    Event
		)
		if err := rows.Scan(&ts, &kind, &e.Temperature); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return events, nil
}

func (r *repository) Close() error {
	var closeErr error

	r.closeOnce.Do(func() {
		close(r.shutdownChan)
		if r.flushTicker != nil {
			r.flushTicker.Stop()
		}
		<-r.flushDoneChan

		// The flusher is gone; drain whatever is left.
		r.mu.Lock()
		if err := r.flush(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to flush telemetry on close")
		}
		r.mu.Unlock()

		if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			closeErr = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: err.Error(),
			})
			r.db.Close()
			return
		}

		if err := r.db.Close(); err != nil {
			closeErr = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "close_database",
				Error: err.Error(),
			})
			return
		}

		r.logger.Info().Msg("Telemetry repository closed gracefully")
	})

	return closeErr
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Error().Err(err).Msg("Periodic telemetry flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes the buffer in one transaction. Callers hold r.mu. A batch
// that fails to commit is dropped so a broken database cannot grow the
// buffer without bound.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	batch := r.buffer
	r.buffer = make([]*Event, 0, r.cfg.BatchSize)

	if err := r.write(batch); err != nil {
		r.logger.Warn().Int("records", len(batch)).Msg("Dropped thermal events after failed flush")
		return err
	}

	r.logger.Debug().Int("records", len(batch)).Msg("Flushed thermal events to database")
	return nil
}

func (r *repository) write(batch []*Event) error {
	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, event := range batch {
		if _, err := stmt.Exec(event.Timestamp.UnixNano(), string(event.Kind), event.Temperature); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	return nil
}
