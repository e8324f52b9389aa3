package intercept

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// State is the lifecycle state of a Layer.
type State int

const (
	StateNew State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

var stateNames = [...]string{"new", "installing", "installed", "activating", "activated", "redundant"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrState is returned when a lifecycle step is attempted from the wrong
// state.
var ErrState = errors.New("intercept: invalid lifecycle state")

// Message kinds accepted by HandleMessage.
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageClearCache  = "CLEAR_CACHE"
)

// Message is a control message from a client.
type Message struct {
	Type string `json:"type"`
}

// State returns the current lifecycle state.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// transition moves from one of the from states to to.
func (l *Layer) transition(to State, from ...State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !slices.Contains(from, l.state) {
		return fmt.Errorf("%w: cannot go from %s to %s", ErrState, l.state, to)
	}
	l.state = to
	return nil
}

func (l *Layer) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Install fetches every manifest asset and stores them in the Precache
// partition as one batch. Any failed or non-200 fetch fails the whole
// install, leaves Precache untouched and marks the layer redundant. On
// success the layer activates at once unless auto-activation is off.
func (l *Layer) Install(ctx context.Context) error {
	if err := l.transition(StateInstalling, StateNew, StateRedundant); err != nil {
		return err
	}
	l.logger.Info("installing", zap.Int("version", l.manifest.Version))

	if err := l.precache(ctx); err != nil {
		l.setState(StateRedundant)
		l.logger.Error("precache failed", zap.Error(err))
		return fmt.Errorf("installing version %d: %w", l.manifest.Version, err)
	}
	l.setState(StateInstalled)

	if !l.autoActivate {
		l.logger.Info("installed, waiting to activate")
		return nil
	}
	return l.Activate(ctx)
}

func (l *Layer) precache(ctx context.Context) error {
	urls, err := l.manifest.Resolve(l.origin)
	if err != nil {
		return err
	}

	pairs := make([]partition.Pair, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.installLimit)
	for i, u := range urls {
		g.Go(func() error {
			p, err := l.fetchAsset(gctx, u)
			if err != nil {
				return err
			}
			pairs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cache, err := l.storage.Open(ctx, l.PrecacheName())
	if err != nil {
		return fault.Storage("opening precache", err)
	}
	if err := cache.PutAll(ctx, pairs); err != nil {
		return fault.Storage("writing precache", err)
	}
	l.logger.Info("precached assets", zap.Int("count", len(pairs)))
	return nil
}

func (l *Layer) fetchAsset(ctx context.Context, u string) (partition.Pair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return partition.Pair{}, fmt.Errorf("building request for %s: %w", u, err)
	}
	resp, err := l.next.RoundTrip(req)
	if err != nil {
		return partition.Pair{}, fault.Network("fetching "+u, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return partition.Pair{}, fmt.Errorf("fetching %s: %w: HTTP %d", u, fault.ErrNetworkFailure, resp.StatusCode)
	}

	entry, err := partition.EntryFromResponse(req, resp, l.now())
	if err != nil {
		return partition.Pair{}, fault.Network("reading "+u, err)
	}
	return partition.Pair{Request: req, Entry: entry}, nil
}

// Activate deletes every partition that is not one of the three current
// ones and starts intercepting requests.
func (l *Layer) Activate(ctx context.Context) error {
	if err := l.transition(StateActivating, StateInstalled); err != nil {
		return err
	}
	l.logger.Info("activating", zap.Int("version", l.manifest.Version))

	names, err := l.storage.Names(ctx)
	if err != nil {
		l.setState(StateInstalled)
		return fault.Storage("listing partitions", err)
	}

	current := l.Partitions()
	for _, name := range names {
		if slices.Contains(current, name) {
			continue
		}
		l.logger.Info("deleting old partition", zap.String("partition", name))
		if _, err := l.storage.Delete(ctx, name); err != nil {
			l.setState(StateInstalled)
			return fault.Storage("deleting partition "+name, err)
		}
		l.stats.IncCounter(stats.MetricPartitionsDeleted, 1)
	}

	l.setState(StateActivated)
	l.logger.Info("claiming clients")
	return nil
}

// Clear deletes every partition in storage, whatever its version, and
// returns how many were removed. The structured store is not touched.
func (l *Layer) Clear(ctx context.Context) (int, error) {
	names, err := l.storage.Names(ctx)
	if err != nil {
		return 0, fault.Storage("listing partitions", err)
	}

	deleted := 0
	for _, name := range names {
		ok, err := l.storage.Delete(ctx, name)
		if err != nil {
			return deleted, fault.Storage("deleting partition "+name, err)
		}
		if ok {
			deleted++
		}
	}
	l.stats.IncCounter(stats.MetricPartitionsDeleted, int64(deleted))
	l.logger.Info("cleared partitions", zap.Int("count", deleted))
	return deleted, nil
}

// HandleMessage applies a control message. SKIP_WAITING activates an
// installed layer that is waiting; CLEAR_CACHE deletes every partition.
// Other message types are ignored.
func (l *Layer) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageSkipWaiting:
		l.logger.Info("received skip waiting")
		if l.State() != StateInstalled {
			return nil
		}
		return l.Activate(ctx)
	case MessageClearCache:
		l.logger.Info("received clear cache")
		_, err := l.Clear(ctx)
		return err
	default:
		l.logger.Debug("ignoring message", zap.String("type", msg.Type))
		return nil
	}
}
