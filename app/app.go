package app

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/livecue/audio"
	"github.com/kbukum/livecue/bootstrap"
	"github.com/kbukum/livecue/capture"
	"github.com/kbukum/livecue/component"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/generation"
	"github.com/kbukum/livecue/llm"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/observability"
	"github.com/kbukum/livecue/response"
	"github.com/kbukum/livecue/server"
	"github.com/kbukum/livecue/server/api"
	"github.com/kbukum/livecue/session"
	"github.com/kbukum/livecue/sse"
	"github.com/kbukum/livecue/transcript"
	"github.com/kbukum/livecue/transcription"
	"github.com/kbukum/livecue/util"
	"github.com/kbukum/livecue/version"
	"github.com/kbukum/livecue/watcher"

	_ "github.com/kbukum/livecue/llm/ollama"
	_ "github.com/kbukum/livecue/llm/openai"
	_ "github.com/kbukum/livecue/transcription/deepgram"
)

// Service is a fully wired livecue instance.
type Service struct {
	*bootstrap.App[*Config]

	Capture      *capture.Controller
	Transcript   *transcript.Aggregator
	Responses    *response.Accumulator
	Orchestrator *session.Orchestrator
	Profile      *session.ProfileStore
	Documents    *session.DocumentRetriever
	Hub          *sse.Hub
	Server       *server.Server
	Watcher      *watcher.Watcher
}

// Option overrides a collaborator built from the configuration.
type Option func(*options)

type options struct {
	device    audio.Device
	engine    transcription.Engine
	provider  generation.Provider
	bootstrap []bootstrap.Option
}

// WithDevice replaces the ffmpeg microphone.
func WithDevice(d audio.Device) Option {
	return func(o *options) { o.device = d }
}

// WithEngine replaces the configured transcription engine.
func WithEngine(e transcription.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithProvider replaces the configured LLM adapter.
func WithProvider(p generation.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithBootstrapOptions passes options to bootstrap.NewApp.
func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(o *options) { o.bootstrap = append(o.bootstrap, opts...) }
}

// New builds every component from cfg and registers them in start order:
// telemetry, watcher, sse, capture, session, http-server. Components stop
// in reverse, so the server stops accepting requests first and telemetry
// is flushed last.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a, err := bootstrap.NewApp(cfg, o.bootstrap...)
	if err != nil {
		return nil, err
	}
	s := &Service{App: a}
	log := a.Logger

	log.Info("configuration loaded", logger.Fields(
		"build", version.Get().String(),
		"engine", cfg.Engine.Provider,
		"engine_key", util.MaskSecret(cfg.Engine.APIKey, 4),
		"llm", cfg.LLM.Dialect,
		"model", cfg.LLM.Model,
		"llm_key", util.MaskSecret(cfg.LLM.APIKey, 4),
	))

	if err := s.wireTelemetry(ctx); err != nil {
		return nil, err
	}
	meter := observability.Meter(ServiceName)

	provider := o.provider
	if provider == nil {
		adapter, err := newProvider(cfg.LLM)
		if err != nil {
			return nil, err
		}
		s.OnReady("llm", probeProvider(adapter, log.WithComponent("llm")))
		provider = adapter
	}
	genMetrics, err := observability.NewGenerationMetrics(meter)
	if err != nil {
		return nil, err
	}
	genOpts := []generation.Option{
		generation.WithRecorder(genMetrics),
		generation.WithLogger(log.WithComponent("generation")),
	}
	if cfg.Generation.MaxPromptTokens > 0 {
		budget, err := generation.NewTokenBudget(cfg.Generation.Encoding, cfg.Generation.MaxPromptTokens)
		if err != nil {
			return nil, err
		}
		genOpts = append(genOpts, generation.WithTokenBudget(budget))
	}
	gen := generation.NewClient(provider, cfg.Generation, genOpts...)

	engine := o.engine
	if engine == nil {
		if engine, err = transcription.NewEngine(cfg.Engine); err != nil {
			return nil, fmt.Errorf("transcription engine: %w", err)
		}
	}
	device := o.device
	if device == nil {
		dev := cfg.Device
		device = &dev
	}

	s.Transcript = transcript.New(
		transcript.WithDebounce(cfg.Transcript.Debounce),
		transcript.WithLogger(log.WithComponent("transcript")),
	)
	s.Responses = response.New(response.WithLogger(log.WithComponent("response")))
	sampler := audio.NewSampler(device, cfg.Audio, audio.WithLogger(log.WithComponent("audio")))
	s.Capture = capture.NewController(sampler, engine, s.Transcript, cfg.Transcription,
		capture.WithLogger(log.WithComponent("capture")),
		capture.WithSessionOptions(transcription.WithLogger(log.WithComponent("transcription"))),
	)

	history := session.NewMemoryHistory(cfg.Context.HistoryLimit)
	s.Profile = session.NewProfileStore(session.Profile{
		SystemPrompt: cfg.Context.SystemPrompt,
		Goals:        cfg.Context.Goals,
	})
	s.Documents = session.NewDocumentRetriever(cfg.Context.RetrievalLimit, cfg.Context.RetrievalMinScore)
	s.Orchestrator = session.New(session.Deps{
		Transcript:  s.Transcript,
		Generator:   gen,
		Accumulator: s.Responses,
		History:     history,
		Profile:     s.Profile,
		Retriever:   s.Documents,
		Summarizer:  session.NewCompletionSummarizer(gen, history, history),
	}, cfg.Session, session.WithLogger(log.WithComponent("session")))

	if err := s.wireWatcher(); err != nil {
		return nil, err
	}
	if err := s.wireEvents(); err != nil {
		return nil, err
	}
	if err := s.wireCapture(meter, device); err != nil {
		return nil, err
	}
	if err := a.RegisterComponent(&component.Funcs{
		ComponentName: "session",
		StopFunc:      s.Orchestrator.Close,
	}); err != nil {
		return nil, err
	}
	if err := s.wireServer(meter); err != nil {
		return nil, err
	}
	return s, nil
}

// wireTelemetry installs the OpenTelemetry providers. The component has no
// start work; registering it first makes it stop last.
func (s *Service) wireTelemetry(ctx context.Context) error {
	providers, err := observability.Setup(ctx, s.Cfg.Observability)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return s.RegisterComponent(&component.Funcs{
		ComponentName: "telemetry",
		StopFunc:      providers.Shutdown,
	})
}

// wireWatcher reloads the goals file into the profile and reference
// documents into the retriever.
func (s *Service) wireWatcher() error {
	c := s.Cfg.Context
	if c.GoalsFile == "" && len(c.Documents) == 0 {
		return nil
	}
	s.Watcher = watcher.New(watcher.WithLogger(s.Logger.WithComponent("watcher")))
	if c.GoalsFile != "" {
		err := s.Watcher.Watch(c.GoalsFile, func(_ string, content []byte) error {
			s.Profile.SetGoals(string(content))
			return nil
		})
		if err != nil {
			return err
		}
	}
	for _, doc := range c.Documents {
		err := s.Watcher.Watch(doc, func(path string, content []byte) error {
			s.Documents.Load(path, string(content))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return s.RegisterComponent(s.Watcher)
}

func (s *Service) wireEvents() error {
	s.Hub = sse.NewHub(sse.WithLogger(s.Logger.WithComponent("sse")))
	pub := sse.NewPublisher(s.Hub,
		sse.WithLevelInterval(s.Cfg.Events.LevelInterval),
		sse.WithPublisherLogger(s.Logger.WithComponent("sse")),
	)
	pub.Attach(s.Capture, s.Transcript, s.Responses)
	s.Go("levels", pub.Run)
	return s.RegisterComponent(sse.NewComponent(s.Hub, api.EventsPath))
}

// wireCapture registers the capture controller. Capture itself starts on
// demand; Start only probes the device backend so a missing ffmpeg shows up
// in health before the first click.
func (s *Service) wireCapture(meter metric.Meter, device audio.Device) error {
	metrics, err := observability.NewCaptureMetrics(meter, s.Capture)
	if err != nil {
		return err
	}
	log := s.Logger.WithComponent("capture")
	var probeErr atomic.Pointer[error]
	return s.RegisterComponent(&component.Funcs{
		ComponentName: "capture",
		StartFunc: func(ctx context.Context) error {
			p, ok := device.(audio.Prober)
			if !ok {
				return nil
			}
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			line, err := p.Probe(pctx)
			if err != nil {
				probeErr.Store(&err)
				log.Warn("audio backend unavailable, capture will fail until it is installed", logger.ErrorFields("probe", err))
				return nil
			}
			log.Info("audio backend ready", logger.Fields("backend", line))
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			err := s.Capture.Close(ctx)
			if merr := metrics.Close(ctx); err == nil {
				err = merr
			}
			return err
		},
		HealthFunc: func(context.Context) component.Health {
			v := s.Capture.Status()
			if v.Status == capture.StatusError {
				return component.Health{Status: component.StatusDegraded, Message: v.Error}
			}
			if perr := probeErr.Load(); perr != nil && v.Status != capture.StatusActive {
				return component.Health{Status: component.StatusDegraded, Message: apperrors.UserMessage(*perr)}
			}
			return component.Health{Status: component.StatusHealthy, Message: string(v.Status)}
		},
	})
}

func (s *Service) wireServer(meter metric.Meter) error {
	httpMetrics, err := observability.NewHTTPMetrics(meter)
	if err != nil {
		return err
	}
	s.Server = server.New(s.Cfg.Server, s.Logger.WithComponent("http"))
	s.Server.ApplyDefaults(s.Name, s.Components.HealthAll, httpMetrics)
	api.New(s.Capture, s.Transcript, s.Orchestrator, s.Hub, s.Logger.WithComponent("api")).
		Register(s.Server.GinEngine())

	s.Server.AddStats("capture", func() any {
		snap := s.Capture.Session().Snapshot()
		return map[string]any{
			"status":     s.Capture.Status().Status,
			"engine":     snap.State,
			"restarts":   snap.TotalRestarts,
			"suppressed": snap.TotalSuppressed,
		}
	})
	s.Server.AddStats("session", func() any {
		return map[string]any{"in_flight": s.Orchestrator.InFlight(), "turns": s.Orchestrator.Turns()}
	})
	s.Server.AddStats("events", func() any {
		return map[string]any{"clients": s.Hub.GetClientCount(), "dropped": s.Hub.Dropped()}
	})
	return s.RegisterComponent(s.Server)
}

// probeProvider checks once at startup that the provider answers. An
// unreachable provider is only reported; submits surface the real error.
func probeProvider(a *llm.Adapter, log *logger.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		fields := logger.Fields("dialect", a.Dialect().Name(), "model", a.Model())
		if !a.IsAvailable(pctx) {
			log.Warn("llm provider not reachable", fields)
			return nil
		}
		log.Info("llm provider reachable", fields)
		return nil
	}
}

// newProvider builds the LLM adapter and identifies livecue to the
// provider unless a User-Agent is configured.
func newProvider(cfg llm.Config) (*llm.Adapter, error) {
	headers := maps.Clone(cfg.Headers)
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	if _, ok := headers["User-Agent"]; !ok {
		headers["User-Agent"] = version.UserAgent(ServiceName)
	}
	cfg.Headers = headers
	adapter, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return adapter, nil
}
