package session

import "net/http"

// Engine wires the session components together: the credential store, the request
// pipeline, the REST client, the manager, and the forced logout redirector.
type Engine struct {
	Config     Config
	Store      *CredentialStore
	Transport  *Transport
	Client     *Client
	Manager    *Manager
	Redirector *Redirector
	Guard      *Guard

	detach func()
}

type engineOptions struct {
	logger        Logger
	notifier      Notifier
	activitySink  ActivitySink
	baseTransport http.RoundTripper
	permissions   PermissionChecker
}

// EngineOption configures NewEngine.
type EngineOption func(*engineOptions)

// WithEngineLogger sets the logger shared by every component.
func WithEngineLogger(logger Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithEngineNotifier sets where forced logout messages are surfaced.
func WithEngineNotifier(n Notifier) EngineOption {
	return func(o *engineOptions) {
		o.notifier = n
	}
}

// WithEngineActivitySink sets the sink that receives session activity.
func WithEngineActivitySink(sink ActivitySink) EngineOption {
	return func(o *engineOptions) {
		o.activitySink = sink
	}
}

// WithEngineBaseTransport sets the RoundTripper the pipeline delegates to.
func WithEngineBaseTransport(rt http.RoundTripper) EngineOption {
	return func(o *engineOptions) {
		o.baseTransport = rt
	}
}

// WithEnginePermissions replaces the default permission set used by the guard.
func WithEnginePermissions(pc PermissionChecker) EngineOption {
	return func(o *engineOptions) {
		o.permissions = pc
	}
}

// NewEngine builds the components for cfg on top of storage. The manager starts in
// the Bootstrapping state; call Initialize on it before the first guard decision.
func NewEngine(cfg Config, storage Storage, nav Navigator, opts ...EngineOption) *Engine {
	o := &engineOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	logger := normalizeLogger(o.logger)

	store := NewCredentialStore(storage, cfg.GetStorageNamespace(), WithCredentialStoreLogger(logger))

	transport := NewTransport(nil, nil,
		WithBaseTransport(o.baseTransport),
		WithTransportLogger(logger),
	)
	client := NewClient(cfg, transport, WithClientLogger(logger))

	manager := NewManager(client, store,
		WithManagerLogger(logger),
		WithActivitySink(o.activitySink),
		WithResendInterval(cfg.GetResendVerificationInterval()),
	)

	// the pipeline reads the token from, and reports failures to, the manager it serves
	transport.tokens = manager
	transport.handler = manager

	redirector := NewRedirector(cfg, nav,
		WithRedirectorNotifier(o.notifier),
		WithRedirectorLogger(logger),
	)

	return &Engine{
		Config:     cfg,
		Store:      store,
		Transport:  transport,
		Client:     client,
		Manager:    manager,
		Redirector: redirector,
		Guard:      NewGuard(cfg, WithPermissionChecker(o.permissions)),
		detach:     redirector.Attach(manager),
	}
}

// Close detaches the redirector from the manager.
func (e *Engine) Close() {
	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}
