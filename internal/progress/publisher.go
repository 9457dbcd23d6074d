// Package progress publishes fit progress to a socket.io server so that a
// dashboard can follow a long sweep live.
//
// Events:
//
//	fit:state  {run_id, state}
//	fit:row    {run_id, index, done, total, values, abund, chisq}
//	fit:best   {run_id, index, values, chisq}
//
// A non-finite chi-square is sent as null.
package progress

import (
	"context"
	"crypto/tls"
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/scoring"
	"github.com/specialistvlad/synfitgo/internal/synfit"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	EventState = "fit:state"
	EventRow   = "fit:row"
	EventBest  = "fit:best"

	connectTimeout = 15 * time.Second
)

// EmitFunc sends one event.
type EmitFunc func(event string, payload map[string]any)

// Publisher implements synfit.Observer by emitting events.
type Publisher struct {
	emit  EmitFunc
	close func()
}

// NewPublisher returns a publisher sending through emit.
func NewPublisher(emit EmitFunc) *Publisher {
	return &Publisher{emit: emit, close: func() {}}
}

// Options configures Dial.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
}

// Dial connects to the socket.io server at rawURL and waits for the
// connection to be established.
func Dial(ctx context.Context, rawURL string, o Options) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("progress_url", rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse progress URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("progress URL %q needs a scheme and a host", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" {
		opts.SetPath(parsed.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	io := manager.Socket(o.Namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting progress publisher.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	logger.Info("✅ Progress publisher connected.", "sid", io.Id())
	return &Publisher{
		emit: func(event string, payload map[string]any) {
			io.Emit(event, payload)
		},
		close: func() { io.Disconnect() },
	}, nil
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	p.close()
}

// StateChanged implements synfit.Observer.
func (p *Publisher) StateChanged(_ context.Context, runID string, state synfit.State) {
	p.emit(EventState, map[string]any{"run_id": runID, "state": state.String()})
}

// RowScored implements synfit.Observer.
func (p *Publisher) RowScored(_ context.Context, ev synfit.RowEvent) {
	p.emit(EventRow, map[string]any{
		"run_id": ev.RunID,
		"index":  ev.Index,
		"done":   ev.Done,
		"total":  ev.Total,
		"values": values(ev.Names, ev.Row.Values),
		"abund":  ev.Row.Abund,
		"chisq":  finite(ev.Row.ChiSquare),
	})
}

// BestFit announces the result of a finished fit.
func (p *Publisher) BestFit(_ context.Context, runID string, best *synfit.BestFit) {
	p.emit(EventBest, map[string]any{
		"run_id": runID,
		"index":  best.Index,
		"values": maps.Clone(best.Values),
		"chisq":  finite(best.ChiSquare),
	})
}

func values(names []string, vals []float64) map[string]any {
	out := make(map[string]any, len(names))
	for i, n := range names {
		out[n] = vals[i]
	}
	return out
}

func finite(v float64) any {
	if !scoring.IsFinite(v) {
		return nil
	}
	return v
}
