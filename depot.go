package depot

import (
	"github.com/swdepot/depot-engine/internal/api"
	"github.com/swdepot/depot-engine/internal/bulk"
	"github.com/swdepot/depot-engine/internal/config"
	"github.com/swdepot/depot-engine/internal/events"
	"github.com/swdepot/depot-engine/internal/favorite"
	"github.com/swdepot/depot-engine/internal/logging"
	"github.com/swdepot/depot-engine/internal/models"
	"github.com/swdepot/depot-engine/internal/notify"
	"github.com/swdepot/depot-engine/internal/upload"
	"github.com/swdepot/depot-engine/internal/version"
	"github.com/swdepot/depot-engine/internal/versionref"
)

// Re-exported types forming the embedding surface.
type (
	Config           = config.Config
	ContentItem      = models.ContentItem
	ItemKind         = models.ItemKind
	Software         = models.Software
	Version          = models.Version
	VersionReference = models.VersionReference
	ItemPayload      = api.ItemPayload
	Query            = bulk.Query
	ArchiveSink      = bulk.ArchiveSink
	UploadParams     = upload.Params
	Guard            = upload.Guard
	Event            = events.Event
	NoticeEvent      = events.NoticeEvent
)

// Content kinds.
const (
	KindDocument = models.KindDocument
	KindPatch    = models.KindPatch
	KindLink     = models.KindLink
	KindMiscFile = models.KindMiscFile
)

// NewVersionSentinel is the reserved "create new version" selection value.
const NewVersionSentinel = versionref.NewVersionSentinel

// Engine wires the engine's parts together for one host session.
type Engine struct {
	cfg      *config.Config
	client   *api.Client
	bus      *events.Bus
	notifier *notify.Notifier
	logger   *logging.Logger
}

// New creates an engine from a validated config.
func New(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(0)
	logger := logging.NewLogger("engine")
	logger.Info().Str("version", version.Version).Str("baseUrl", cfg.BaseURL).Msg("Engine initialized")

	return &Engine{
		cfg:      cfg,
		client:   client,
		bus:      bus,
		notifier: notify.NewNotifier(cfg.Notifications, bus, logger),
		logger:   logger,
	}, nil
}

// Client returns the portal API client.
func (e *Engine) Client() *api.Client { return e.client }

// Bus returns the event bus hosts subscribe to for notices and progress.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Notifier returns the notice surface.
func (e *Engine) Notifier() *notify.Notifier { return e.notifier }

// NewResolver creates a version-reference resolver for one form session.
func (e *Engine) NewResolver() *versionref.Resolver {
	return versionref.NewResolver(e.cfg)
}

// NewCoordinator creates a bulk operation coordinator for one list view.
func (e *Engine) NewCoordinator(kind models.ItemKind) *bulk.Coordinator {
	return bulk.NewCoordinator(kind, e.client, e.notifier, e.bus, e.logger)
}

// NewFavoriteTracker creates an optimistic favorite tracker.
func (e *Engine) NewFavoriteTracker() *favorite.Tracker {
	return favorite.NewTracker(e.client, e.notifier, e.bus, e.logger)
}

// NewUploadSession creates a chunked upload session. The engine fills in
// the client, the bus, and the configured chunk size unless the params
// already carry them.
func (e *Engine) NewUploadSession(params upload.Params) (*upload.Session, error) {
	if params.Client == nil {
		params.Client = e.client
	}
	if params.Bus == nil {
		params.Bus = e.bus
	}
	if params.ChunkSize <= 0 {
		params.ChunkSize = e.cfg.ChunkSize()
	}
	if params.Logger == nil {
		params.Logger = e.logger
	}
	return upload.NewSession(params)
}

// Close shuts down the event bus. The engine is unusable afterwards.
func (e *Engine) Close() {
	e.bus.Close()
}
