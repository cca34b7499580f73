// Package state owns the dashboard's shared data: the current process list,
// the resource summary, load/error flags and the chat history. Readers only
// ever see Snapshot copies; mutation goes through Refresh and AppendChat.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/procpulse/internal/model"
	"github.com/Dicklesworthstone/procpulse/internal/notice"
	"github.com/Dicklesworthstone/procpulse/internal/source"
)

// DefaultInterval is the time between scheduled refreshes.
const DefaultInterval = 10 * time.Second

// ErrRefreshInFlight is returned by Refresh when another refresh has not
// settled yet.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// Fetcher supplies process and resource data. source.Client implements it.
type Fetcher interface {
	FetchProcesses(ctx context.Context) (source.ProcessResult, error)
	FetchResources(ctx context.Context) (source.ResourceResult, error)
}

var _ Fetcher = (*source.Client)(nil)

// Snapshot is a read-only view of the store at one instant. Processes is
// shared with the store and must not be modified.
type Snapshot struct {
	Processes      []model.Process
	Resources      model.Resources
	ProcessOrigin  source.Origin
	ResourceOrigin source.Origin
	Loading        bool
	// Err holds the message of the last failed refresh; empty after a success.
	Err       string
	Chat      []string
	UpdatedAt time.Time
	// Version increases every time Processes is replaced.
	Version uint64
}

// Loaded reports whether at least one refresh has completed.
func (s Snapshot) Loaded() bool { return !s.UpdatedAt.IsZero() }

// Store is the state container.
type Store struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger
	notices  notice.Poster
	now      func() time.Time

	mu             sync.RWMutex
	processes      []model.Process
	resources      model.Resources
	processOrigin  source.Origin
	resourceOrigin source.Origin
	loading        bool
	errMsg         string
	chat           []string
	updatedAt      time.Time
	version        uint64

	refreshing atomic.Bool
	updates    chan struct{}
}

// Option customizes a Store.
type Option func(*Store)

// WithInterval sets the refresh period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotices routes refresh failures to p.
func WithNotices(p notice.Poster) Option { return func(s *Store) { s.notices = p } }

// New returns a Store backed by f.
func New(f Fetcher, opts ...Option) *Store {
	s := &Store{
		fetcher:  f,
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		updates:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the refresh period.
func (s *Store) Interval() time.Duration { return s.interval }

// Updates delivers a signal after every state change. Signals coalesce.
func (s *Store) Updates() <-chan struct{} { return s.updates }

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Processes:      s.processes,
		Resources:      s.resources,
		ProcessOrigin:  s.processOrigin,
		ResourceOrigin: s.resourceOrigin,
		Loading:        s.loading,
		Err:            s.errMsg,
		Chat:           s.chat[:len(s.chat):len(s.chat)],
		UpdatedAt:      s.updatedAt,
		Version:        s.version,
	}
}

// AppendChat adds reply to the end of the chat history.
func (s *Store) AppendChat(reply string) {
	s.mu.Lock()
	s.chat = append(s.chat, reply)
	s.mu.Unlock()
	s.signal()
}

// Refresh fetches processes and resources concurrently and replaces both in
// one step. It returns ErrRefreshInFlight without doing anything when
// another refresh is still running.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Debug("refresh skipped, previous one still in flight")
		return ErrRefreshInFlight
	}
	defer s.refreshing.Store(false)

	s.mu.Lock()
	if len(s.processes) == 0 {
		s.loading = true
	}
	s.mu.Unlock()
	s.signal()

	var (
		procs source.ProcessResult
		res   source.ResourceResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err)
		procs, err = s.fetcher.FetchProcesses(gctx)
		return err
	})
	g.Go(func() (err error) {
		defer recoverInto(&err)
		res, err = s.fetcher.FetchResources(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.fail(ctx, err)
		return err
	}

	s.mu.Lock()
	if !slices.Equal(s.processes, procs.Processes) {
		s.processes = procs.Processes
		s.version++
	}
	s.processOrigin = procs.Origin
	s.resources = res.Resources
	s.resourceOrigin = res.Origin
	s.errMsg = ""
	s.loading = false
	s.updatedAt = s.now()
	s.mu.Unlock()
	s.signal()

	s.logger.Debug("refreshed",
		"processes", len(procs.Processes),
		"process_origin", procs.Origin,
		"resource_origin", res.Origin,
	)
	return nil
}

func (s *Store) fail(ctx context.Context, err error) {
	shutdown := ctx.Err() != nil && errors.Is(err, ctx.Err())

	s.mu.Lock()
	s.loading = false
	if !shutdown {
		s.errMsg = err.Error()
	}
	s.mu.Unlock()
	s.signal()

	if shutdown {
		s.logger.Debug("refresh abandoned", "error", err)
		return
	}
	s.logger.Error("refresh failed", "error", err)
	if s.notices != nil {
		s.notices.Post(notice.Error, "Failed to refresh process data: "+err.Error())
	}
}

// Run refreshes immediately, then once per interval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	_ = s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Start runs the refresh schedule in the background. The returned stop
// function cancels it and waits until no further refresh can happen.
func (s *Store) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Store) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic during fetch: %v", r)
	}
}
