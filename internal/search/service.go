package search

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	// candidateCap bounds how many substring-verified candidates a query
	// collects before ranking.
	candidateCap = 200
	// resultCap is the final truncation after sorting.
	resultCap = 100
)

// Result is one ranked search hit.
type Result struct {
	FullPath    string
	DisplayName string
	IsDirectory bool
	Score       int32
	MatchStart  int
	MatchLen    int
}

// ResultCallback receives the finished result set exactly once per delivered
// query, with complete=true.
type ResultCallback func(results []Result, complete bool)

// Service owns the background indexer and the search worker. A shared-read
// lock guards the mapped index; the indexer takes the write lock only for
// the atomic swap after a rebuild.
type Service struct {
	indexPath string
	volumes   func() []VolumeSource

	mu    sync.RWMutex
	index *DiskIndex

	statusMu sync.Mutex
	status   string

	// deliverMu serializes result delivery so a stale worker can never
	// deliver after its successor.
	deliverMu sync.Mutex

	indexing     atomic.Bool
	ready        atomic.Bool
	cancelIndex  atomic.Bool
	cancelSearch atomic.Bool
	searchID     atomic.Uint64
	progress     atomic.Uint64 // progress * 1e6

	indexDone chan struct{}
}

// NewService creates a service storing its index at path; an empty path uses
// the per-user default. volumes may be nil to use the platform detection.
func NewService(path string, volumes func() []VolumeSource) *Service {
	if path == "" {
		path = DefaultIndexPath()
	}
	if volumes == nil {
		volumes = FixedVolumes
	}
	return &Service{indexPath: path, volumes: volumes}
}

// DefaultIndexPath resolves the per-user index file location.
func DefaultIndexPath() string {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("LOCALAPPDATA")
	}
	if base == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			base = dir
		} else {
			base = "."
		}
	}
	dir := filepath.Join(base, "Velocitty")
	os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "search.idx")
}

// IsIndexing reports whether the background build is running.
func (s *Service) IsIndexing() bool { return s.indexing.Load() }

// IsReady reports whether an index is mapped and searchable.
func (s *Service) IsReady() bool { return s.ready.Load() }

// IndexedCount returns the entry count of the mapped index.
func (s *Service) IndexedCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.EntryCount()
}

// Progress returns indexing progress in [0,1].
func (s *Service) Progress() float64 {
	return float64(s.progress.Load()) / 1e6
}

// Status returns the last indexing status line.
func (s *Service) Status() string {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

func (s *Service) setStatus(status string) {
	s.statusMu.Lock()
	s.status = status
	s.statusMu.Unlock()
}

// StartIndexing launches the single background indexing task. Existing
// on-disk state is mapped immediately for instant availability, then an
// incremental update (or full rebuild) runs and swaps in the fresh mapping.
func (s *Service) StartIndexing(progress ProgressFunc) {
	if !s.indexing.CompareAndSwap(false, true) {
		return
	}
	s.cancelIndex.Store(false)
	s.indexDone = make(chan struct{})
	go s.indexTask(progress)
}

// StopIndexing cancels and waits for the background task.
func (s *Service) StopIndexing() {
	s.cancelIndex.Store(true)
	s.cancelSearch.Store(true)
	if s.indexDone != nil {
		<-s.indexDone
	}
}

func (s *Service) indexTask(progress ProgressFunc) {
	defer close(s.indexDone)
	defer s.indexing.Store(false)

	report := func(p float64, status string) {
		s.progress.Store(uint64(p * 1e6))
		s.setStatus(status)
		if progress != nil {
			progress(p, status)
		}
	}

	stale := NeedsRebuild(s.indexPath)
	if idx, err := OpenDiskIndex(s.indexPath); err == nil {
		s.swapIndex(idx)
		s.ready.Store(true)
		report(0, "Index loaded, checking for updates...")
	} else if !os.IsNotExist(err) {
		log.Printf("search: opening %s: %v; rebuilding", s.indexPath, err)
	}

	builder := NewIndexBuilder()
	sources := s.volumes()
	var stats BuildStats
	var err error
	if s.ready.Load() && !stale {
		stats, err = builder.IncrementalUpdate(s.indexPath, sources, &s.cancelIndex, report)
	} else {
		stats, err = builder.Build(s.indexPath, sources, &s.cancelIndex, report)
	}
	if err != nil {
		// Fail-soft: search stays unavailable (or stale) until next start.
		log.Printf("search: index build: %v", err)
		report(1, "Indexing failed")
		return
	}
	if s.cancelIndex.Load() {
		return
	}

	idx, err := OpenDiskIndex(s.indexPath)
	if err != nil {
		log.Printf("search: reopening %s: %v", s.indexPath, err)
		return
	}
	s.swapIndex(idx)
	s.ready.Store(true)

	status := "Ready"
	if stats.WasIncremental && (stats.FilesAdded > 0 || stats.FilesRemoved > 0) {
		status = "Ready (updated)"
	}
	report(1, status)
}

func (s *Service) swapIndex(idx *DiskIndex) {
	s.mu.Lock()
	old := s.index
	s.index = idx
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Close releases the mapped index after stopping background work.
func (s *Service) Close() {
	s.StopIndexing()
	s.swapIndex(nil)
}

// Search runs a query on the dedicated worker. A newer query supersedes an
// in-flight one: the stale worker observes the bumped id and exits without
// delivering.
func (s *Service) Search(query string, cb ResultCallback) {
	if query == "" {
		cb(nil, true)
		return
	}
	s.cancelSearch.Store(false)
	id := s.searchID.Add(1)
	go s.searchWorker(query, id, cb)
}

// CancelSearch aborts any in-flight query without delivering results.
func (s *Service) CancelSearch() {
	s.searchID.Add(1)
	s.cancelSearch.Store(true)
}

func (s *Service) searchWorker(query string, id uint64, cb ResultCallback) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index
	if idx == nil {
		s.deliver(id, cb, nil)
		return
	}

	q := encodeName(query)
	results := make([]Result, 0, candidateCap)
	stale := func() bool {
		return s.cancelSearch.Load() || id != s.searchID.Load()
	}

	collect := func(i uint32) bool {
		if i >= idx.EntryCount() {
			return true
		}
		e := idx.Entry(i)
		if e.FileRef == 0 {
			return true
		}
		name := idx.NameUnits(i)
		pos := indexOfFolded(name, q)
		if pos < 0 {
			return true
		}
		results = append(results, Result{
			FullPath:    idx.BuildFullPath(i),
			DisplayName: decodeName(name),
			IsDirectory: e.IsDir(),
			Score:       scoreMatch(len(name), len(q), pos),
			MatchStart:  pos,
			MatchLen:    len(q),
		})
		return len(results) < candidateCap
	}

	if len(q) >= 3 {
		for _, i := range s.trigramCandidates(idx, q, stale) {
			if stale() {
				return
			}
			if !collect(i) {
				break
			}
		}
	} else {
		for _, i := range idx.ShortNameIndices() {
			if stale() {
				return
			}
			if !collect(i) {
				break
			}
		}
		for i := uint32(0); i < idx.EntryCount() && len(results) < candidateCap; i++ {
			if stale() {
				return
			}
			if int(idx.Entry(i).NameLength) < 3 {
				continue // already covered by the short-name bucket
			}
			collect(i)
		}
	}

	if stale() {
		return
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DisplayName < results[j].DisplayName
	})
	if len(results) > resultCap {
		results = results[:resultCap]
	}
	s.deliver(id, cb, results)
}

// deliver invokes the callback exactly once per surviving query; a query
// superseded between its last staleness check and here is dropped.
func (s *Service) deliver(id uint64, cb ResultCallback, results []Result) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if id != s.searchID.Load() || s.cancelSearch.Load() {
		return
	}
	cb(results, true)
}

// trigramCandidates intersects the posting lists of every overlapping query
// trigram; any absent trigram empties the result immediately.
func (s *Service) trigramCandidates(idx *DiskIndex, q []uint16, stale func() bool) []uint32 {
	var result []uint32
	first := true
	for i := 0; i+2 < len(q); i++ {
		if stale() {
			return nil
		}
		postings := idx.Postings(MakeTrigram(q[i], q[i+1], q[i+2]))
		if len(postings) == 0 {
			return nil
		}
		if first {
			result = postings
			first = false
			continue
		}
		result = intersectSorted(result, postings)
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

// intersectSorted merges two ascending lists.
func intersectSorted(a, b []uint32) []uint32 {
	out := make([]uint32, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// scoreMatch ranks a verified match: base 100, +50 exact length, +30 prefix,
// minus up to 20 for longer names.
func scoreMatch(nameLen, queryLen, matchPos int) int32 {
	score := int32(100)
	if nameLen == queryLen {
		score += 50
	}
	if matchPos == 0 {
		score += 30
	}
	diff := nameLen - queryLen
	if diff > 20 {
		diff = 20
	}
	score -= int32(diff)
	return score
}
