package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startService(t *testing.T, vol *fakeVolume) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search.idx")
	svc := NewService(path, func() []VolumeSource { return []VolumeSource{vol} })
	t.Cleanup(svc.Close)

	svc.StartIndexing(nil)
	require.Eventually(t, svc.IsReady, 5*time.Second, 5*time.Millisecond)
	waitIdle(t, svc)
	return svc
}

func waitIdle(t *testing.T, svc *Service) {
	t.Helper()
	require.Eventually(t, func() bool { return !svc.IsIndexing() }, 5*time.Second, 5*time.Millisecond)
}

func query(t *testing.T, svc *Service, q string) []Result {
	t.Helper()
	done := make(chan []Result, 1)
	svc.Search(q, func(results []Result, complete bool) {
		assert.True(t, complete)
		done <- results
	})
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("search did not deliver")
		return nil
	}
}

func names(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.DisplayName
	}
	return out
}

func TestQueryTrigramMatches(t *testing.T) {
	svc := startService(t, cDrive())

	// "bb" is below trigram length and scans linearly.
	assert.ElementsMatch(t, []string{"bb.txt", "bbc.txt"}, names(query(t, svc, "bb")))

	assert.Equal(t, []string{"bbc.txt"}, names(query(t, svc, "bbc")))
	assert.Empty(t, query(t, svc, "xyz"))
}

func TestQueryIsCaseInsensitive(t *testing.T) {
	svc := startService(t, cDrive())
	assert.Equal(t, []string{"bbc.txt"}, names(query(t, svc, "BBC")))
	assert.Equal(t, []string{"bbc.txt"}, names(query(t, svc, "Bbc.TXT")))
}

func TestQuerySoundness(t *testing.T) {
	// Every returned name contains the query as a case-insensitive
	// substring, and match bounds point at it.
	svc := startService(t, cDrive())
	for _, r := range query(t, svc, "txt") {
		require.GreaterOrEqual(t, r.MatchStart, 0)
		require.Equal(t, 3, r.MatchLen)
		assert.Contains(t, r.DisplayName, ".txt")
		assert.NotEmpty(t, r.FullPath)
	}
}

func TestQueryScoring(t *testing.T) {
	vol := &fakeVolume{letter: 'C', journalID: 1, files: []FileInfo{
		{Name: "notes", FileRef: 2, ParentRef: 1},
		{Name: "notes-archive", FileRef: 3, ParentRef: 1},
		{Name: "my-notes", FileRef: 4, ParentRef: 1},
	}}
	svc := startService(t, vol)

	results := query(t, svc, "notes")
	require.Len(t, results, 3)
	// Exact match first (100+50+30), then prefix, then interior.
	assert.Equal(t, "notes", results[0].DisplayName)
	assert.Equal(t, int32(180), results[0].Score)
	assert.Equal(t, "notes-archive", results[1].DisplayName)
	assert.Equal(t, int32(122), results[1].Score)
	assert.Equal(t, "my-notes", results[2].DisplayName)
	assert.Equal(t, int32(97), results[2].Score)
}

func TestQueryShortNameBucket(t *testing.T) {
	vol := &fakeVolume{letter: 'C', journalID: 1, files: []FileInfo{
		{Name: "ab", FileRef: 2, ParentRef: 1},
		{Name: "abacus", FileRef: 3, ParentRef: 1},
	}}
	svc := startService(t, vol)

	results := query(t, svc, "ab")
	assert.ElementsMatch(t, []string{"ab", "abacus"}, names(results))
	// The exact short name outranks the longer one.
	assert.Equal(t, "ab", results[0].DisplayName)
}

func TestQueryEmptyDeliversImmediately(t *testing.T) {
	svc := startService(t, cDrive())
	assert.Empty(t, query(t, svc, ""))
}

func TestTombstonesInvisibleAfterIncremental(t *testing.T) {
	// Full S5 flow through the service: rename delivered by the journal,
	// incremental update on the second StartIndexing.
	vol := cDrive()
	// The rename is two journal changes; pad the fixture to 8 entries so they
	// stay within the quarter threshold and the update stays incremental.
	for i := uint64(20); i < 24; i++ {
		vol.files = append(vol.files, FileInfo{Name: "pad" + string(rune('a'+i-20)) + ".dat", FileRef: i, ParentRef: 1})
	}
	svc := startService(t, vol)
	require.ElementsMatch(t, []string{"bb.txt", "bbc.txt"}, names(query(t, svc, "bb")))

	vol.deleted = []uint64{4}
	vol.added = []FileChange{{FileRef: 4, ParentRef: 3, Name: "bbd.txt"}}
	vol.nextUsn = 200

	svc.StartIndexing(nil)
	waitIdle(t, svc)

	assert.ElementsMatch(t, []string{"bbc.txt", "bbd.txt"}, names(query(t, svc, "bb")))
	assert.Equal(t, []string{"bbd.txt"}, names(query(t, svc, "bbd")))
	assert.Empty(t, query(t, svc, "bb.txt"))

	for _, r := range query(t, svc, "bbd") {
		assert.Equal(t, `C:\dir\bbd.txt`, r.FullPath)
	}
}

func TestSupersededSearchDoesNotDeliver(t *testing.T) {
	svc := startService(t, cDrive())

	delivered := make(chan string, 2)
	svc.Search("bbc", func(results []Result, complete bool) { delivered <- "first" })
	svc.Search("bb", func(results []Result, complete bool) { delivered <- "second" })

	// The second always lands; the first may have been superseded. What
	// must never happen is a first delivery after the second.
	first := <-delivered
	if first == "first" {
		assert.Equal(t, "second", <-delivered)
		return
	}
	select {
	case late := <-delivered:
		t.Fatalf("stale query %q delivered after its successor", late)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIntersectSorted(t *testing.T) {
	assert.Equal(t, []uint32{2, 4}, intersectSorted([]uint32{1, 2, 4, 7}, []uint32{2, 3, 4, 9}))
	assert.Empty(t, intersectSorted([]uint32{1, 3}, []uint32{2, 4}))
	assert.Empty(t, intersectSorted(nil, []uint32{1}))
}

func TestScoreMatch(t *testing.T) {
	assert.Equal(t, int32(180), scoreMatch(5, 5, 0))  // exact
	assert.Equal(t, int32(127), scoreMatch(8, 5, 0))  // prefix
	assert.Equal(t, int32(97), scoreMatch(8, 5, 3))   // interior
	assert.Equal(t, int32(80), scoreMatch(40, 5, 10)) // length penalty caps at 20
}
