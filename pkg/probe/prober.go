package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pulsegrid/pulsegrid/internal/telemetry"
	"github.com/pulsegrid/pulsegrid/pkg/clientsettings"
	"github.com/pulsegrid/pulsegrid/pkg/evaluator"
)

// maxRedirects bounds the redirect chain the prober's HTTP client follows,
// per §4.2 ("follow no redirects beyond a small bound").
const maxRedirects = 3

// Prober selects due HttpTargets, issues bounded-concurrency HTTP checks
// against them, and hands the outcome to the threshold evaluator. Every
// check runs in its own goroutine behind a global and a per-client
// semaphore; Tick returns once every check it started has finished.
type Prober struct {
	store    *Store
	settings *clientsettings.Store
	driver   *evaluator.Driver
	logger   *slog.Logger
	client   *http.Client
	concurrency int
}

func NewProber(store *Store, settings *clientsettings.Store, driver *evaluator.Driver, logger *slog.Logger, concurrency int) *Prober {
	return &Prober{
		store:    store,
		settings: settings,
		driver:   driver,
		logger:   logger,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		concurrency: concurrency,
	}
}

// Tick selects every due HttpTarget and probes it, bounding parallelism
// globally at p.concurrency and per client at
// max(1, concurrency/active_clients), rounded up, per §4.2.
func (p *Prober) Tick(ctx context.Context) error {
	targets, err := p.store.Due(ctx, p.concurrency*4)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	activeClients := map[string]struct{}{}
	for _, t := range targets {
		activeClients[t.ClientID.String()] = struct{}{}
	}
	perClientLimit := (p.concurrency + len(activeClients) - 1) / len(activeClients)
	if perClientLimit < 1 {
		perClientLimit = 1
	}

	global := make(chan struct{}, p.concurrency)
	perClient := make(map[string]chan struct{}, len(activeClients))
	for c := range activeClients {
		perClient[c] = make(chan struct{}, perClientLimit)
	}

	var wg sync.WaitGroup
	for _, t := range targets {
		t := t
		clientSem := perClient[t.ClientID.String()]

		wg.Add(1)
		global <- struct{}{}
		clientSem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-global }()
			defer func() { <-clientSem }()

			if err := p.probeAndEvaluate(ctx, t); err != nil {
				p.logger.Error("probing http target", "error", err, "target_id", t.ID, "client_id", t.ClientID)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (p *Prober) probeAndEvaluate(ctx context.Context, target Row) error {
	outcome := p.probe(ctx, target)

	telemetry.ProbesTotal.WithLabelValues(strconv.FormatBool(outcome.OK)).Inc()

	if err := p.store.RecordOutcome(ctx, outcome); err != nil {
		return err
	}

	settings, err := p.settings.GetOrDefault(ctx, target.ClientID)
	if err != nil {
		return err
	}

	cfg := evaluator.Config{
		GracePeriodSeconds:           settings.GracePeriodSeconds,
		ConsecutiveFailuresThreshold: settings.ConsecutiveFailuresThreshold,
	}
	gating := evaluator.Gating{PendingSince: target.PendingSince, ConsecutiveFailures: target.ConsecutiveFailures}

	result, err := p.driver.EvaluateProbeOutcome(ctx, target.ClientID, target.ID, outcome.OK, target.State, gating, cfg, settings.NotifyOnResolve)
	if err != nil {
		return err
	}

	var pending *pgtype.Timestamptz
	if result.Gating.PendingSince != nil {
		pending = &pgtype.Timestamptz{Time: *result.Gating.PendingSince, Valid: true}
	}
	return p.store.UpdateState(ctx, target.ID, string(result.State), pending, result.Gating.ConsecutiveFailures)
}

// probe issues the configured request and normalizes transport failures to
// status=0, per §4.2.
func (p *Prober) probe(ctx context.Context, target Row) Outcome {
	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(target.TimeoutMs)*time.Millisecond)
	defer cancel()

	status := 0
	req, err := http.NewRequestWithContext(reqCtx, target.Method, target.URL, nil)
	if err == nil {
		resp, doErr := p.client.Do(req)
		if doErr == nil {
			status = resp.StatusCode
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	latency := time.Since(start)
	telemetry.ProbeDuration.Observe(latency.Seconds())

	return Outcome{
		ClientID:  target.ClientID,
		TargetID:  target.ID,
		OK:        acceptedStatus(status, target.AcceptedStatusCodes),
		Status:    status,
		LatencyMs: int(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
}

func acceptedStatus(status int, accepted []int32) bool {
	for _, a := range accepted {
		if int(a) == status {
			return true
		}
	}
	return false
}
