package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sealproof/pkg/platform/circuit"
)

// FailoverStore writes to the primary sink until a run of failures opens its
// circuit breaker, then diverts to the fallback. While open it probes the
// primary at most once per probe interval; a run of successful probes closes
// the breaker and restores the primary.
//
// Losing the ordered stream beats losing the events: the fallback keeps
// evidence of what happened while the broker was down.
type FailoverStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger

	probeEvery time.Duration
	mu         sync.Mutex
	lastProbe  time.Time
}

func NewFailoverStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:    primary,
		fallback:   fallback,
		breaker:    breaker,
		logger:     logger,
		probeEvery: 5 * time.Second,
	}
}

func (s *FailoverStore) Append(ctx context.Context, event Event) error {
	if s.breaker.IsOpen() && !s.shouldProbe() {
		return s.fallback.Append(ctx, event)
	}

	if err := s.primary.Append(ctx, event); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened && s.logger != nil {
			s.logger.Error("audit sink circuit opened, diverting to fallback",
				"breaker", s.breaker.Name(), "error", err.Error())
		}
		// The failed event itself lands in the fallback either way.
		return s.fallback.Append(ctx, event)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
		s.logger.Info("audit sink circuit closed, primary restored",
			"breaker", s.breaker.Name())
	}
	return nil
}

// shouldProbe rations primary attempts while the circuit is open.
func (s *FailoverStore) shouldProbe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastProbe) < s.probeEvery {
		return false
	}
	s.lastProbe = time.Now()
	return true
}
