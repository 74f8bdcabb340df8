package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/cache"
	"github.com/five82/layerscope/internal/compare"
	"github.com/five82/layerscope/internal/fstree"
	"github.com/five82/layerscope/internal/metrics"
	"github.com/five82/layerscope/internal/progress"
)

// Validation errors. They are returned synchronously, before any backend
// call, and never touch the task status.
var (
	ErrNoImage           = errors.New("no image selected")
	ErrUnknownLayer      = errors.New("layer does not belong to the current image")
	ErrNotLoadable       = errors.New("entry is not an unloaded directory")
	ErrExtractionPending = errors.New("directory extraction already in progress")
)

// Phase is the orchestrator's position in the loading sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseImageLoading
	PhaseLayersReady
	PhaseLayerFilesLoading
	PhaseLayerFilesReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseImageLoading:
		return "image loading"
	case PhaseLayersReady:
		return "layers ready"
	case PhaseLayerFilesLoading:
		return "layer files loading"
	case PhaseLayerFilesReady:
		return "layer files ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Options configure a Session.
type Options struct {
	Normalizer fstree.Normalizer
	// Budget accounts extracted bytes. Nil disables accounting.
	Budget *cache.Budget
	Logger *zap.Logger
}

// Session owns the canonical inspection state: the resident image, the
// current layer's entries, file content, comparison state and the live
// task status. All methods are safe for concurrent use; the lock is never
// held across a backend call.
type Session struct {
	gw      backend.Gateway
	log     *zap.Logger
	norm    fstree.Normalizer
	budget  *cache.Budget
	tracker *progress.Tracker
	changes chan struct{}

	mu sync.Mutex

	images              []backend.ImageSummary
	imagesUpdated       time.Time
	imagesErr           error
	consecutiveFailures int

	phase        Phase
	err          error
	image        *backend.Image
	currentLayer string
	entries      []backend.Entry
	pending      map[string]bool
	expanded     map[string]bool

	selectedFile string
	fileContent  string
	loadingFile  bool

	cmp       compare.Mode
	cmpErr    error
	comparing bool

	build *BuildFile

	imageSeq uint64
	layerSeq uint64
	fileSeq  uint64
	cmpSeq   uint64
}

// New returns an idle session backed by gw.
func New(gw backend.Gateway, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	norm := opts.Normalizer
	if norm.Namespace == "" && norm.LayerRoot == "" {
		norm = fstree.DefaultNormalizer()
	}
	s := &Session{
		gw:       gw,
		log:      logger.Named("session"),
		norm:     norm,
		budget:   opts.Budget,
		changes:  make(chan struct{}, 1),
		pending:  make(map[string]bool),
		expanded: make(map[string]bool),
	}
	s.tracker = progress.NewTracker(logger, s.notify)
	return s
}

// Changes fires after every state mutation. Notifications coalesce: a
// reader that falls behind sees one pending signal, then reads Snapshot.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// ComparisonState is the comparison part of a Snapshot.
type ComparisonState struct {
	Active   bool
	Selected []string
	Result   *backend.LayerDiff
	Pair     [2]string
	Running  bool
	Err      error
}

// Snapshot is a deep copy of the session state for readers.
type Snapshot struct {
	Phase Phase
	Err   error

	Images              []backend.ImageSummary
	ImagesUpdated       time.Time
	ImagesErr           error
	ConsecutiveFailures int

	Image        *backend.Image
	CurrentLayer string
	Entries      []backend.Entry
	Pending      []string
	Expanded     map[string]bool

	SelectedFile string
	FileContent  string
	LoadingFile  bool

	Task    backend.TaskStatus
	HasTask bool

	Comparison ComparisonState
	Cache      cache.Usage
	BuildFile  *BuildFile
}

// IsOffline reports whether image list refreshes keep failing.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Layer returns the current layer of the resident image.
func (s Snapshot) Layer() (backend.Layer, bool) {
	return s.Image.Layer(s.CurrentLayer)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	task, hasTask := s.tracker.Status()

	s.mu.Lock()
	defer s.mu.Unlock()

	result, pair := s.cmp.Result()
	snap := Snapshot{
		Phase:               s.phase,
		Err:                 s.err,
		Images:              cloneImages(s.images),
		ImagesUpdated:       s.imagesUpdated,
		ImagesErr:           s.imagesErr,
		ConsecutiveFailures: s.consecutiveFailures,
		Image:               s.image.Clone(),
		CurrentLayer:        s.currentLayer,
		Entries:             backend.CloneEntries(s.entries),
		Pending:             sortedKeys(s.pending),
		Expanded:            cloneSet(s.expanded),
		SelectedFile:        s.selectedFile,
		FileContent:         s.fileContent,
		LoadingFile:         s.loadingFile,
		Task:                task,
		HasTask:             hasTask,
		Comparison: ComparisonState{
			Active:   s.cmp.Active(),
			Selected: s.cmp.Selected(),
			Result:   result,
			Pair:     pair,
			Running:  s.comparing,
			Err:      s.cmpErr,
		},
		BuildFile: s.build.clone(),
	}
	if s.budget != nil {
		snap.Cache = s.budget.Usage()
	}
	return snap
}

// call runs one backend command and records its outcome.
func (s *Session) call(command string, fn func() error) error {
	started := time.Now()
	err := fn()
	metrics.RecordBackendCall(command, err, time.Since(started))
	if err != nil {
		s.log.Warn("backend command failed", zap.String("command", command), zap.Error(err))
	}
	return err
}

// discard logs and counts a response that lost to a newer selection.
func (s *Session) discard(command string, fields ...zap.Field) {
	metrics.RecordStale(command)
	s.log.Debug("discarded stale response", append([]zap.Field{zap.String("command", command)}, fields...)...)
}

// recordUsageLocked accounts an extraction against the cache budget. It
// runs under s.mu together with the staleness check so that an image
// change cannot reset the budget in between.
func (s *Session) recordUsageLocked(scope cache.Scope, entries []backend.Entry) {
	if s.budget != nil {
		s.budget.Record(scope, entries)
	}
}

// reportUsage publishes the budget and warns when it is exceeded.
func (s *Session) reportUsage() {
	if s.budget == nil {
		return
	}
	usage := s.budget.Usage()
	metrics.SetCacheUsage(usage.Used, usage.Limit)
	if usage.Over() {
		candidates := make([]string, len(usage.Candidates))
		for i, c := range usage.Candidates {
			candidates[i] = c.String()
		}
		s.log.Warn("extracted layer data over cache budget",
			zap.String("usage", usage.String()),
			zap.Strings("lru_scopes", candidates),
		)
	}
}

// resetLayerLocked clears everything derived from the current layer.
func (s *Session) resetLayerLocked() {
	s.layerSeq++
	s.fileSeq++
	s.currentLayer = ""
	s.entries = nil
	s.pending = make(map[string]bool)
	s.expanded = make(map[string]bool)
	s.selectedFile = ""
	s.fileContent = ""
	s.loadingFile = false
	metrics.SetTreeEntries(0)
	metrics.SetPendingExtractions(0)
}

func cloneImages(in []backend.ImageSummary) []backend.ImageSummary {
	if len(in) == 0 {
		return nil
	}
	out := make([]backend.ImageSummary, len(in))
	copy(out, in)
	return out
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}

func sortedKeys(in map[string]bool) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
