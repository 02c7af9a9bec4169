// Package writemusic serves a live sentence-length visualizer: every edit
// to the text is rendered on the server, reconciled against the previous
// render and pushed to the browser as a patch.
package writemusic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/livefir/writemusic/internal/highlight"
	"github.com/livefir/writemusic/internal/memory"
	"github.com/livefir/writemusic/internal/metrics"
	"github.com/livefir/writemusic/internal/render"
	"github.com/livefir/writemusic/internal/session"
	"github.com/livefir/writemusic/internal/vdom"
)

// ErrTextTooLong is returned when a request body is larger than any
// acceptable edit
var ErrTextTooLong = errors.New("text too long")

// Visualizer owns every live page and serves them over HTTP
type Visualizer struct {
	config   Config
	builder  *highlight.Builder
	validate *validator.Validate
	metrics  *metrics.Collector
	memory   *memory.Manager
	sessions *session.Manager[*page]
	client   *clientAsset
	pageSeq  atomic.Int64

	shellOnce sync.Once
	shell     *shell
	shellErr  error

	cancel context.CancelFunc
}

// page is one live render loop and the mirror it draws on
type page struct {
	id     string
	loop   *render.Loop
	mirror *render.Mirror
	outbox *outbox // HTTP fallback only
}

// New creates a visualizer with the given options
func New(opts ...Option) *Visualizer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewCollector()
	}

	log.Printf("writemusic.New: DevMode=%v WebSocketDisabled=%v", config.DevMode, config.WebSocketDisabled)

	ctx, cancel := context.WithCancel(context.Background())
	v := &Visualizer{
		config:   config,
		builder:  highlight.NewBuilder(highlight.WithTitle(config.Title)),
		validate: validator.New(),
		metrics:  config.Metrics,
		memory:   memory.NewManager(&memory.Config{MaxMemoryMB: config.MemoryLimitMB}),
		sessions: session.NewManager[*page](config.SessionTTL),
		client:   newClientAsset(config.DevMode),
		cancel:   cancel,
	}

	v.sessions.OnEvict(func(s *session.Session[*page]) {
		v.closePage(s.Value)
	})
	v.sessions.StartCleanup(ctx, v.sessions.TTL()/2, func(removed int) {
		if removed > 0 {
			log.Printf("Removed %d expired sessions", removed)
			v.metrics.IncrementCleanupOperation(int64(removed))
		}
	})

	return v
}

// Handler serves the page shell, the live endpoint, the client script and
// the metrics
func (v *Visualizer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", v.serveShell)
	mux.Handle(LiveEndpoint, &liveHandler{v: v})
	mux.Handle("GET "+ClientScriptPath, v.client)
	mux.HandleFunc("GET /metrics", v.serveMetrics)
	return mux
}

// Metrics returns the collector the visualizer reports to
func (v *Visualizer) Metrics() *metrics.Collector {
	return v.metrics
}

// Close stops session cleanup and closes every HTTP fallback page.
// WebSocket pages close with their connections.
func (v *Visualizer) Close() {
	v.cancel()
	v.sessions.Close()
}

// newPage mounts a page with the initial text. forward receives every
// patch before the page's mirror commits it.
func (v *Visualizer) newPage(forward func(vdom.Patch) error) (*page, error) {
	p := &page{id: fmt.Sprintf("page-%d", v.pageSeq.Add(1))}
	text := v.config.InitialText
	size := int64(len(text))

	if !v.memory.CanAllocate(size) {
		return nil, fmt.Errorf("%w: %d bytes needed, %d available",
			memory.ErrLimitExceeded, size, v.memory.GetAvailableMemory())
	}
	if err := v.memory.AllocatePage(p.id, size); err != nil {
		return nil, err
	}
	if v.memory.IsNearCapacity() {
		log.Printf("Memory near capacity: %d pages, %d bytes available",
			v.memory.GetTotalPages(), v.memory.GetAvailableMemory())
	}

	display := render.DisplayFunc(func(tree *vdom.Node) (render.Surface, error) {
		m, err := render.NewMirror(tree, render.WithForward(forward))
		if err != nil {
			return nil, err
		}
		p.mirror = m
		return m, nil
	})

	p.loop = render.NewLoop(display,
		render.WithBuilder(v.builder),
		render.WithRecorder(v.metrics),
		render.WithLayoutDelay(v.config.LayoutDelay),
	)
	if err := p.loop.Initialize(text); err != nil {
		v.memory.DeallocatePage(p.id)
		return nil, err
	}

	v.metrics.IncrementPageCreated()
	v.updateMemoryMetrics()
	return p, nil
}

// closePage stops the page's loop and releases its text
func (v *Visualizer) closePage(p *page) {
	p.loop.Close()
	v.memory.DeallocatePage(p.id)
	v.metrics.IncrementPageDestroyed()
	v.updateMemoryMetrics()
}

// edit runs one render cycle for text. The page keeps its previous text
// and display when the cycle fails.
func (v *Visualizer) edit(p *page, text string) (vdom.Patch, error) {
	previous, ok := v.memory.GetPageMemoryUsage(p.id)
	if !ok {
		return vdom.Patch{}, fmt.Errorf("%w: %s", memory.ErrUnknownPage, p.id)
	}
	if err := v.memory.UpdatePageUsage(p.id, int64(len(text))); err != nil {
		return vdom.Patch{}, err
	}

	patch, err := p.loop.OnTextChanged(text)
	if err != nil {
		if restoreErr := v.memory.RestorePageUsage(p.id, previous); restoreErr != nil {
			log.Printf("Failed to restore memory usage of %s: %v", p.id, restoreErr)
		}
		return vdom.Patch{}, err
	}

	v.updateMemoryMetrics()
	return patch, nil
}

// geometry records what the browser measured and resizes the editable
// control right away
func (v *Visualizer) geometry(p *page, g render.Geometry) {
	p.mirror.SetGeometry(highlight.DrawKey, g)
	p.loop.RecomputeLayout()
}

// mount returns the frame that rebuilds the page in a browser, including
// the row count of the editable control when one is set
func (v *Visualizer) mount(p *page) Frame {
	frame := mountFrame(p.loop.Tree())

	rows := p.mirror.Rows(highlight.AreaKey)
	if rows <= 0 {
		return frame
	}
	if path, ok := p.mirror.Document().PathOf(highlight.AreaKey); ok {
		frame.Ops = []vdom.Operation{{
			Type:  vdom.OpSetAttribute,
			Path:  path,
			Key:   "rows",
			Value: strconv.Itoa(rows),
		}}
	}
	return frame
}

func (v *Visualizer) updateMemoryMetrics() {
	status := v.memory.GetMemoryStatus()
	v.metrics.UpdateMemoryUsage(status.CurrentUsage, status.AveragePageMemory)
}

func (v *Visualizer) serveShell(w http.ResponseWriter, r *http.Request) {
	v.shellOnce.Do(func() {
		v.shell, v.shellErr = newShell(v.config.Title, v.config.WebSocketDisabled, v.config.DevMode)
	})
	if v.shellErr != nil {
		http.Error(w, v.shellErr.Error(), http.StatusInternalServerError)
		return
	}

	tree, err := v.builder.Page(v.config.InitialText)
	if err != nil {
		log.Printf("Failed to build first frame: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := v.shell.render(w, tree); err != nil {
		log.Printf("Failed to render page: %v", err)
	}
}

// topPagesLimit is how many of the largest pages /metrics lists
const topPagesLimit = 5

// metricsResponse is the JSON body of /metrics
type metricsResponse struct {
	Metrics  metrics.ApplicationMetrics `json:"metrics"`
	Rates    metricsRates               `json:"rates"`
	Memory   memory.Status              `json:"memory"`
	TopPages []memory.PageMemoryInfo    `json:"top_pages"`
	Custom   map[string]int64           `json:"custom,omitempty"`
	Sessions int                        `json:"sessions"`
}

// metricsRates are the ratios derived from the counters
type metricsRates struct {
	RenderFailurePercent float64 `json:"render_failure_percent"`
	OperationsPerPatch   float64 `json:"operations_per_patch"`
	MemoryPerPage        float64 `json:"memory_per_page"`
}

func (v *Visualizer) serveMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(v.metrics.ExportPrometheusText()))
		return
	}

	rates := metricsRates{
		RenderFailurePercent: v.metrics.GetFailureRate(),
		OperationsPerPatch:   v.metrics.GetAverageOperations(),
		MemoryPerPage:        v.metrics.GetMemoryEfficiency(),
	}
	response := metricsResponse{
		Metrics:  v.metrics.GetMetrics(),
		Rates:    rates,
		Memory:   v.memory.GetMemoryStatus(),
		TopPages: v.memory.GetTopMemoryPages(topPagesLimit),
		Custom:   v.metrics.GetCustomCounters(),
		Sessions: v.sessions.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
