package session

import (
	"context"
	"strings"
	"sync"

	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/generation"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/resilience"
	"github.com/kbukum/livecue/response"
	"github.com/kbukum/livecue/transcript"
)

// Deps are the collaborators of an Orchestrator. Transcript, Generator and
// Accumulator are required; the rest are optional.
type Deps struct {
	Transcript  Transcript
	Generator   Generator
	Accumulator *response.Accumulator
	History     History
	Profile     ContextSource
	Retriever   Retriever
	Summarizer  Summarizer
}

// Orchestrator runs submits one at a time.
type Orchestrator struct {
	cfg  Config
	deps Deps

	guard *resilience.Bulkhead
	clock clock.Clock
	log   *logger.Logger

	mu      sync.Mutex
	current *Submission
	cancel  context.CancelFunc
	turns   int
	closed  bool
	wg      sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used to timestamp turns.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an orchestrator.
func New(deps Deps, cfg Config, opts ...Option) *Orchestrator {
	cfg.ApplyDefaults()
	if deps.History == nil {
		deps.History = NewMemoryHistory(0)
	}
	if deps.Profile == nil {
		deps.Profile = NewProfileStore(Profile{})
	}
	o := &Orchestrator{cfg: cfg, deps: deps, clock: clock.Real()}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("session")
	}
	o.guard = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "submit",
		MaxConcurrent: 1,
		OnReject: func(string) {
			o.log.Debug("submit rejected, request in flight")
		},
	})
	return o
}

// Submit sends the pending transcript for generation. It returns
// errors.ErrNothingToSubmit when there is no finalized text and
// errors.ErrInProgress while another request is outstanding; neither has
// side effects. Otherwise the submitted text is taken from the transcript,
// a new response is started and generation proceeds in the background.
// Speech that arrives while Submit runs stays pending for the next one.
// ctx scopes values only; the request outlives it and is stopped with Cancel.
func (o *Orchestrator) Submit(ctx context.Context) (*Submission, error) {
	o.deps.Transcript.Flush()
	var opts []transcript.SubmitOption
	if o.cfg.IncludeInterim {
		opts = append(opts, transcript.WithInterim())
	}
	if _, ok := o.deps.Transcript.SubmitText(opts...); !ok {
		return nil, apperrors.ErrNothingToSubmit
	}

	if !o.guard.TryAcquire() {
		return nil, apperrors.ErrInProgress
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.guard.Release()
		return nil, apperrors.ServiceUnavailable("session")
	}
	text, ok := o.deps.Transcript.Take(opts...)
	if !ok {
		// Cleared between the check and the take.
		o.mu.Unlock()
		o.guard.Release()
		return nil, apperrors.ErrNothingToSubmit
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancel = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	id := o.deps.Accumulator.Start()
	sub := newSubmission(id, text)

	o.mu.Lock()
	o.current = sub
	o.mu.Unlock()

	o.log.Info("submit accepted", logger.Fields(logger.FieldRequestID, id, "chars", len(text)))
	go o.run(runCtx, cancel, sub)
	return sub, nil
}

// Cancel aborts the in-flight request, if any, and reports whether there
// was one. The partial response stays visible.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// InFlight reports whether a request is outstanding.
func (o *Orchestrator) InFlight() bool { return o.guard.InUse() > 0 }

// Current returns the outstanding submission, or nil.
func (o *Orchestrator) Current() *Submission {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// State returns the live response.
func (o *Orchestrator) State() response.State { return o.deps.Accumulator.Snapshot() }

// Turns returns the number of completed turns.
func (o *Orchestrator) Turns() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turns
}

// Close rejects new submits, cancels the in-flight request and waits for
// background work to finish or ctx to end.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, sub *Submission) {
	defer o.wg.Done()
	defer cancel()

	answer, ttft, err := o.generate(ctx, sub)
	if err == nil {
		o.deps.Accumulator.Complete(sub.ID)
		o.record(sub, answer)
	} else {
		o.deps.Accumulator.Fail(sub.ID, err)
		o.logFailure(sub, err)
	}

	o.mu.Lock()
	if o.current == sub {
		o.current = nil
		o.cancel = nil
	}
	o.mu.Unlock()
	o.guard.Release()

	sub.finish(answer, ttft, err)
}

func (o *Orchestrator) generate(ctx context.Context, sub *Submission) (string, *generationTiming, error) {
	req, err := o.buildRequest(ctx, sub.Input)
	if err != nil {
		return "", nil, err
	}
	stream, err := o.deps.Generator.Stream(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		d, ok, err := stream.Next(ctx)
		if err != nil {
			return b.String(), timingOf(stream), err
		}
		if !ok {
			break
		}
		if !o.deps.Accumulator.Append(sub.ID, d.Text) {
			// Superseded; nobody is listening for this id any more.
			return b.String(), timingOf(stream), context.Canceled
		}
		b.WriteString(d.Text)
	}
	return b.String(), timingOf(stream), nil
}

// buildRequest assembles the profile, summary, retrieved reference text and
// recent turns around input.
func (o *Orchestrator) buildRequest(ctx context.Context, input string) (generation.Request, error) {
	profile := o.deps.Profile.Profile()

	system := strings.TrimSpace(profile.SystemPrompt)
	if goals := strings.TrimSpace(profile.Goals); goals != "" {
		if system != "" {
			system += "\n\n"
		}
		system += "Goals:\n" + goals
	}

	var blocks []string
	summary, err := o.deps.History.Summary(ctx)
	if err != nil {
		o.log.Warn("history summary unavailable", logger.ErrorFields("session.summary", err))
	} else if summary != "" {
		blocks = append(blocks, "Conversation so far:\n"+summary)
	}
	if ref := o.retrieve(ctx, input); ref != "" {
		blocks = append(blocks, ref)
	}

	turns, err := o.deps.History.Recent(ctx, o.cfg.HistoryTurns)
	if err != nil {
		o.log.Warn("history unavailable", logger.ErrorFields("session.history", err))
		turns = nil
	}
	if err := ctx.Err(); err != nil {
		return generation.Request{}, err
	}

	return generation.Request{
		Input:      input,
		PriorTurns: turns,
		Options: generation.Options{
			SystemPrompt: system,
			Context:      strings.Join(blocks, "\n\n"),
			Model:        o.cfg.Model,
			Temperature:  o.cfg.Temperature,
			MaxTokens:    o.cfg.MaxTokens,
		},
	}, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, query string) string {
	if o.deps.Retriever == nil {
		return ""
	}
	rctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()
	ref, err := o.deps.Retriever.Retrieve(rctx, query)
	if err != nil {
		if ctx.Err() == nil {
			o.log.Warn("retrieval failed, continuing without it", logger.ErrorFields("session.retrieve", err))
		}
		return ""
	}
	return strings.TrimSpace(ref)
}

// record stores the completed turn and triggers summarization every
// SummarizeEvery turns.
func (o *Orchestrator) record(sub *Submission, answer string) {
	turn := generation.Turn{Question: sub.Input, Answer: answer, At: o.clock.Now()}
	if err := o.deps.History.Append(context.Background(), turn); err != nil {
		o.log.Warn("history append failed", logger.ErrorFields("session.history", err))
	}

	o.mu.Lock()
	o.turns++
	n := o.turns
	due := o.deps.Summarizer != nil && o.cfg.SummarizeEvery > 0 && n%o.cfg.SummarizeEvery == 0
	if due {
		o.wg.Add(1)
	}
	o.mu.Unlock()

	if due {
		go o.summarize(n)
	}
}

func (o *Orchestrator) summarize(turn int) {
	defer o.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.SummaryTimeout)
	defer cancel()

	turns, err := o.deps.History.Recent(ctx, o.cfg.SummarizeEvery)
	if err == nil {
		err = o.deps.Summarizer.Summarize(ctx, turns)
	}
	if err != nil {
		o.log.Warn("summarization failed", logger.ErrorFields("session.summarize", err))
		return
	}
	o.log.Info("conversation summarized", logger.Fields("turn", turn))
}

func (o *Orchestrator) logFailure(sub *Submission, err error) {
	if apperrors.IsAppError(err) {
		o.log.Warn("generation failed", logger.Fields(
			logger.FieldRequestID, sub.ID,
			"code", string(apperrors.CodeOf(err)),
			"error", err.Error(),
		))
		return
	}
	o.log.Info("generation canceled", logger.Fields(logger.FieldRequestID, sub.ID))
}
