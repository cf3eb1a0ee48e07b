package engine

import (
	"log/slog"
	"time"

	"newsdocx/internal/config"
	"newsdocx/internal/langid"
	"newsdocx/internal/modeldir"
	"newsdocx/internal/textutil"
)

// Engine ties the pipeline stages to their collaborators. It is safe
// for concurrent use; the batch orchestrator fans articles out across
// goroutines sharing one Engine.
type Engine struct {
	cfg     *config.Config
	disp    Dispatcher
	catalog *modeldir.Catalog
	checker *langid.Checker
	log     *slog.Logger

	now func() time.Time
}

// New creates an Engine. checker may be nil to skip the post-translation
// language check.
func New(cfg *config.Config, disp Dispatcher, catalog *modeldir.Catalog, checker *langid.Checker, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		disp:    disp,
		catalog: catalog,
		checker: checker,
		log:     log,
		now:     time.Now,
	}
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e *Engine) sanitize(text string) (string, int, []string) {
	r := textutil.Sanitize(text, e.cfg.Processing.ForbiddenPrefixes, e.cfg.Processing.ForbiddenPatterns)
	if r.Text == "" {
		return text, r.Removed, r.Kinds
	}
	return r.Text, r.Removed, r.Kinds
}
