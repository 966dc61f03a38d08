package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Defaults for the orchestration cadence. The warm-up delay exists because
// the service is empirically not queryable right after accepting a job; the
// poll budget gives a ceiling of roughly three minutes.
const (
	DefaultWarmupDelay     = 2 * time.Second
	DefaultPollInterval    = 3 * time.Second
	DefaultMaxPollAttempts = 60
)

// nullDerefSignature is the recognized crash signature of the upstream
// extractor when a listing is missing structural fields.
const nullDerefSignature = "'NoneType' object has no attribute"

// Options tunes the orchestrator. Zero values fall back to the defaults
// above; ListingDomains defaults to the airbnb domains.
type Options struct {
	WarmupDelay     time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	ListingDomains  []string
}

// Orchestrator drives a remote extraction job to a terminal state. It is a
// pure state-transition loop over immutable Job snapshots; the only side
// effects are the outbound calls and the sleeps between them.
type Orchestrator struct {
	client          Client
	warmupDelay     time.Duration
	pollInterval    time.Duration
	maxPollAttempts int
	listingDomains  []string
}

// Result is a finished extraction. Degraded marks payloads recovered through
// the salvage path after a terminal upstream error.
type Result struct {
	Payload  *Payload
	Degraded bool
}

// NewOrchestrator creates an orchestrator over the given client.
func NewOrchestrator(client Client, opts Options) *Orchestrator {
	o := &Orchestrator{
		client:          client,
		warmupDelay:     opts.WarmupDelay,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		listingDomains:  opts.ListingDomains,
	}
	if o.warmupDelay <= 0 {
		o.warmupDelay = DefaultWarmupDelay
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	if o.maxPollAttempts <= 0 {
		o.maxPollAttempts = DefaultMaxPollAttempts
	}
	if len(o.listingDomains) == 0 {
		o.listingDomains = []string{"airbnb.com", "airbnb.fr"}
	}
	return o
}

// SubmitJob validates the listing URL, starts an extraction job, and waits
// the warm-up delay before returning the job id. The service rejects status
// reads issued immediately after acceptance, so the delay is part of the
// submit contract, not an optimization.
func (o *Orchestrator) SubmitJob(ctx context.Context, listingURL string) (string, error) {
	if err := o.ValidateListingURL(listingURL); err != nil {
		return "", err
	}

	id, err := o.client.Submit(ctx, listingURL)
	if err != nil {
		return "", err
	}
	slog.Info("extraction job submitted", "job_id", id, "listing_url", listingURL)

	if err := sleepCtx(ctx, o.warmupDelay); err != nil {
		return "", err
	}
	return id, nil
}

// AwaitCompletion polls the job on a fixed cadence until it reaches a
// terminal state or the attempt budget runs out.
func (o *Orchestrator) AwaitCompletion(ctx context.Context, jobID string) (Result, error) {
	for attempt := 1; attempt <= o.maxPollAttempts; attempt++ {
		job, err := o.client.Status(ctx, jobID)
		if err != nil {
			return Result{}, fmt.Errorf("job %s attempt %d: %w", jobID, attempt, err)
		}

		step := o.advance(ctx, job)
		switch step.kind {
		case stepContinue:
			if err := sleepCtx(ctx, o.pollInterval); err != nil {
				return Result{}, err
			}
		case stepDone:
			return Result{Payload: step.payload, Degraded: step.degraded}, nil
		case stepFailed:
			return Result{}, fmt.Errorf("job %s attempt %d: %w", jobID, attempt, step.err)
		}
	}
	return Result{}, fmt.Errorf("job %s: %w after %d attempts", jobID, ErrExtractionTimeout, o.maxPollAttempts)
}

// Extract runs the whole orchestration: submit, warm up, await.
func (o *Orchestrator) Extract(ctx context.Context, listingURL string) (Result, error) {
	jobID, err := o.SubmitJob(ctx, listingURL)
	if err != nil {
		return Result{}, err
	}
	return o.AwaitCompletion(ctx, jobID)
}

type stepKind int

const (
	stepContinue stepKind = iota
	stepDone
	stepFailed
)

// pollStep is the tagged outcome of one poll: keep going, finished with a
// payload, or failed terminally. "Still processing" is ordinary flow here,
// never an error.
type pollStep struct {
	kind     stepKind
	payload  *Payload
	degraded bool
	err      error
}

// advance maps one job snapshot to the next step of the loop.
func (o *Orchestrator) advance(ctx context.Context, job Job) pollStep {
	switch job.State {
	case StateProcessing:
		slog.Debug("extraction in progress", "job_id", job.ID, "progress", job.Progress, "message", job.Message)
		return pollStep{kind: stepContinue}

	case StateCompleted:
		if job.Data == nil || !job.Data.HasRoomImages() {
			// Empty is valid; the classifier's fallback bucket handles it.
			slog.Warn("extraction completed without room images", "job_id", job.ID)
		}
		if job.Data == nil {
			return pollStep{kind: stepDone, payload: &Payload{}}
		}
		return pollStep{kind: stepDone, payload: job.Data}

	case StateError:
		return o.salvage(ctx, job)

	default:
		return pollStep{kind: stepFailed, err: fmt.Errorf("%w: unknown job state %q", ErrPoll, job.State)}
	}
}

// salvage attempts one "fetch whatever partial data exists" read after a
// terminal error. If any image source is recoverable the job is treated as
// completed with degraded data; returning something beats returning nothing
// when at least pixels survive.
func (o *Orchestrator) salvage(ctx context.Context, job Job) pollStep {
	detail := job.ErrorDetail
	if detail == "" {
		detail = job.Message
	}
	slog.Warn("extraction job failed, attempting salvage", "job_id", job.ID, "error", detail)

	payload, err := o.client.Complete(ctx, job.ID)
	if err == nil && payload != nil && payload.HasAnyImages() {
		slog.Info("salvage recovered partial data", "job_id", job.ID)
		return pollStep{kind: stepDone, payload: payload, degraded: true}
	}

	if strings.Contains(detail, nullDerefSignature) {
		return pollStep{kind: stepFailed, err: fmt.Errorf(
			"%w: the listing is missing structural fields the extractor requires (known upstream bug); create the parcours manually",
			ErrExtractionFailed)}
	}
	return pollStep{kind: stepFailed, err: fmt.Errorf("%w: %s", ErrExtractionFailed, detail)}
}

// ValidateListingURL checks the URL is syntactically plausible and belongs
// to one of the expected listing domains.
func (o *Orchestrator) ValidateListingURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidInput)
	}
	for _, domain := range o.listingDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a supported listing domain", ErrInvalidInput, host)
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
