package search

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVolume is a scripted VolumeSource for builder and service tests.
type fakeVolume struct {
	letter    rune
	files     []FileInfo
	journalID uint64
	nextUsn   uint64
	noJournal bool

	// scripted journal stream for ReadChanges
	deleted []uint64
	added   []FileChange
}

func (f *fakeVolume) DriveLetter() rune    { return f.letter }
func (f *fakeVolume) DriveIndex() uint8    { return uint8(f.letter - 'A') }
func (f *fakeVolume) VolumeSerial() uint32 { return 0xABCD1234 }

func (f *fakeVolume) Enumerate(cancel *atomic.Bool, yield func(FileInfo)) error {
	for _, fi := range f.files {
		if cancel != nil && cancel.Load() {
			return nil
		}
		yield(fi)
	}
	return nil
}

func (f *fakeVolume) JournalPosition() (uint64, uint64, error) {
	if f.noJournal {
		return 0, 0, ErrNoJournal
	}
	return f.journalID, f.nextUsn, nil
}

func (f *fakeVolume) ReadChanges(journalID, sinceUsn uint64, cancel *atomic.Bool) ([]uint64, []FileChange, uint64, error) {
	if f.noJournal || journalID != f.journalID {
		return nil, nil, 0, ErrJournalRotated
	}
	return f.deleted, f.added, f.nextUsn, nil
}

// cDrive builds the S4 fixture: C:\a.txt, C:\dir\bb.txt, C:\dir\bbc.txt.
func cDrive() *fakeVolume {
	return &fakeVolume{
		letter:    'C',
		journalID: 77,
		nextUsn:   100,
		files: []FileInfo{
			{Name: "a.txt", FileRef: 2, ParentRef: 1},
			{Name: "dir", FileRef: 3, ParentRef: 1, Attr: attrDirectory},
			{Name: "bb.txt", FileRef: 4, ParentRef: 3},
			{Name: "bbc.txt", FileRef: 5, ParentRef: 3},
		},
	}
}

func buildAt(t *testing.T, vol VolumeSource) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search.idx")
	b := NewIndexBuilder()
	var cancel atomic.Bool
	_, err := b.Build(path, []VolumeSource{vol}, &cancel, nil)
	require.NoError(t, err)
	return path
}

func TestIndexRoundTrip(t *testing.T) {
	path := buildAt(t, cDrive())

	idx, err := OpenDiskIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, uint32(4), idx.EntryCount())
	assert.Equal(t, "a.txt", idx.Name(0))
	assert.Equal(t, `C:\a.txt`, idx.BuildFullPath(0))
	assert.Equal(t, `C:\dir`, idx.BuildFullPath(1))
	assert.Equal(t, `C:\dir\bb.txt`, idx.BuildFullPath(2))
	assert.Equal(t, `C:\dir\bbc.txt`, idx.BuildFullPath(3))
	assert.True(t, idx.Entry(1).IsDir())
	assert.NotZero(t, idx.BuildTimestamp())

	meta := idx.Metadata()
	require.Len(t, meta, 1)
	assert.Equal(t, uint16('C'), meta[0].DriveLetter)
	assert.Equal(t, uint64(77), meta[0].JournalID)
	assert.Equal(t, uint64(100), meta[0].LastUsn)
	assert.Equal(t, uint32(0xABCD1234), meta[0].VolumeSerial)
}

func TestPostingsSortedAndDeduplicated(t *testing.T) {
	// "bbbb" emits the trigram "bbb" twice; the stored posting list must
	// hold the entry once.
	vol := &fakeVolume{letter: 'C', journalID: 1, files: []FileInfo{
		{Name: "bbbb", FileRef: 2, ParentRef: 1},
		{Name: "abbb", FileRef: 3, ParentRef: 1},
	}}
	path := buildAt(t, vol)

	idx, err := OpenDiskIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	tri := MakeTrigram('b', 'b', 'b')
	postings := idx.Postings(tri)
	assert.Equal(t, []uint32{0, 1}, postings)
}

func TestShortNamesGoToReservedBucket(t *testing.T) {
	vol := &fakeVolume{letter: 'C', journalID: 1, files: []FileInfo{
		{Name: "ab", FileRef: 2, ParentRef: 1},
		{Name: "x", FileRef: 3, ParentRef: 1},
		{Name: "long-name.txt", FileRef: 4, ParentRef: 1},
	}}
	path := buildAt(t, vol)

	idx, err := OpenDiskIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, []uint32{0, 1}, idx.ShortNameIndices())
}

func TestTrigramCaseInsensitive(t *testing.T) {
	assert.Equal(t, MakeTrigram('A', 'B', 'C'), MakeTrigram('a', 'b', 'c'))
	assert.NotEqual(t, MakeTrigram('a', 'b', 'c'), MakeTrigram('a', 'b', 'd'))
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad magic", func(t *testing.T) {
		path := filepath.Join(dir, "magic.idx")
		data := make([]byte, headerSize+4)
		copy(data, "NOPE")
		require.NoError(t, os.WriteFile(path, data, 0o644))
		_, err := OpenDiskIndex(path)
		assert.ErrorIs(t, err, ErrIndexCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		path := buildAt(t, cDrive())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))
		_, err = OpenDiskIndex(path)
		assert.ErrorIs(t, err, ErrIndexCorrupt)
	})

	t.Run("wrong version", func(t *testing.T) {
		path := buildAt(t, cDrive())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[4] = 99
		require.NoError(t, os.WriteFile(path, data, 0o644))
		_, err = OpenDiskIndex(path)
		assert.ErrorIs(t, err, ErrIndexCorrupt)
	})
}

func TestIncrementalRename(t *testing.T) {
	// S5: bb.txt renamed to bbd.txt, delivered through the journal.
	vol := cDrive()
	// The rename is two journal changes; pad the fixture to 8 entries so they
	// stay within the quarter threshold and the incremental path runs.
	for i := uint64(20); i < 24; i++ {
		vol.files = append(vol.files, FileInfo{Name: "pad" + string(rune('a'+i-20)) + ".dat", FileRef: i, ParentRef: 1})
	}
	path := buildAt(t, vol)

	vol.deleted = []uint64{4}
	vol.added = []FileChange{{FileRef: 4, ParentRef: 3, Name: "bbd.txt"}}
	vol.nextUsn = 200

	b := NewIndexBuilder()
	var cancel atomic.Bool
	stats, err := b.IncrementalUpdate(path, []VolumeSource{vol}, &cancel, nil)
	require.NoError(t, err)
	assert.True(t, stats.WasIncremental)
	assert.Equal(t, uint32(1), stats.FilesRemoved)
	assert.Equal(t, uint32(1), stats.FilesAdded)

	idx, err := OpenDiskIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	// The old entry is tombstoned, the new one appended.
	assert.Equal(t, uint32(9), idx.EntryCount())
	assert.Equal(t, uint64(0), idx.Entry(2).FileRef)
	assert.Equal(t, "bbd.txt", idx.Name(8))
	assert.Equal(t, `C:\dir\bbd.txt`, idx.BuildFullPath(8))

	meta := idx.Metadata()
	require.Len(t, meta, 1)
	assert.Equal(t, uint64(200), meta[0].LastUsn)
}

func TestIncrementalEquivalentToFullRebuild(t *testing.T) {
	// Applying create/rename/delete events incrementally must yield the same
	// live paths as rebuilding from the post-event filesystem, modulo
	// tombstones.
	vol := cDrive()
	incPath := buildAt(t, vol)

	vol.deleted = []uint64{4, 2}
	vol.added = []FileChange{
		{FileRef: 4, ParentRef: 3, Name: "bbd.txt"},
		{FileRef: 6, ParentRef: 3, Name: "fresh.txt"},
	}
	vol.nextUsn = 300

	// Keep the change count at or under a quarter of the entries so the
	// incremental path actually runs: pad the initial filesystem.
	for i := uint64(20); i < 36; i++ {
		vol.files = append(vol.files, FileInfo{Name: "pad" + string(rune('a'+i-20)) + ".dat", FileRef: i, ParentRef: 1})
	}
	incPath = buildAt(t, vol)

	b := NewIndexBuilder()
	var cancel atomic.Bool
	stats, err := b.IncrementalUpdate(incPath, []VolumeSource{vol}, &cancel, nil)
	require.NoError(t, err)
	require.True(t, stats.WasIncremental)

	// Post-event filesystem for the ground-truth rebuild.
	after := &fakeVolume{letter: 'C', journalID: 77, nextUsn: 300, files: []FileInfo{
		{Name: "dir", FileRef: 3, ParentRef: 1, Attr: attrDirectory},
		{Name: "bbd.txt", FileRef: 4, ParentRef: 3},
		{Name: "bbc.txt", FileRef: 5, ParentRef: 3},
		{Name: "fresh.txt", FileRef: 6, ParentRef: 3},
	}}
	for i := uint64(20); i < 36; i++ {
		after.files = append(after.files, FileInfo{Name: "pad" + string(rune('a'+i-20)) + ".dat", FileRef: i, ParentRef: 1})
	}
	fullPath := buildAt(t, after)

	livePaths := func(path string) map[string]bool {
		idx, err := OpenDiskIndex(path)
		require.NoError(t, err)
		defer idx.Close()
		out := map[string]bool{}
		for i := uint32(0); i < idx.EntryCount(); i++ {
			if idx.Entry(i).FileRef != 0 {
				out[idx.BuildFullPath(i)] = true
			}
		}
		return out
	}
	assert.Equal(t, livePaths(fullPath), livePaths(incPath))
}

func TestIncrementalJournalRotationForcesRebuild(t *testing.T) {
	vol := cDrive()
	path := buildAt(t, vol)

	// Rotate the journal and change the filesystem contents.
	vol.journalID = 78
	vol.files = append(vol.files, FileInfo{Name: "new.txt", FileRef: 9, ParentRef: 1})

	b := NewIndexBuilder()
	var cancel atomic.Bool
	stats, err := b.IncrementalUpdate(path, []VolumeSource{vol}, &cancel, nil)
	require.NoError(t, err)
	assert.False(t, stats.WasIncremental)
	assert.Equal(t, uint32(5), stats.FilesIndexed)

	idx, err := OpenDiskIndex(path)
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, uint32(5), idx.EntryCount())
}

func TestIncrementalMassChangeForcesRebuild(t *testing.T) {
	vol := cDrive()
	path := buildAt(t, vol)

	// 2 changes against 4 entries crosses the quarter threshold.
	vol.deleted = []uint64{4, 5}
	vol.added = nil

	b := NewIndexBuilder()
	var cancel atomic.Bool
	stats, err := b.IncrementalUpdate(path, []VolumeSource{vol}, &cancel, nil)
	require.NoError(t, err)
	assert.False(t, stats.WasIncremental, "threshold breach must fall back to full rebuild")
}

func TestIncrementalWithoutIndexBuildsFresh(t *testing.T) {
	vol := cDrive()
	path := filepath.Join(t.TempDir(), "missing.idx")

	b := NewIndexBuilder()
	var cancel atomic.Bool
	stats, err := b.IncrementalUpdate(path, []VolumeSource{vol}, &cancel, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), stats.FilesIndexed)
}

func TestAtomicPublishLeavesNoTemp(t *testing.T) {
	path := buildAt(t, cDrive())
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDirSourceWalk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "inner.txt"), []byte("x"), 0o644))

	src := NewDirSource(root, 'C')
	byName := map[string]FileInfo{}
	err := src.Enumerate(nil, func(fi FileInfo) { byName[fi.Name] = fi })
	require.NoError(t, err)

	inner, ok := byName["inner.txt"]
	require.True(t, ok)
	sub, ok := byName["sub"]
	require.True(t, ok)
	assert.Equal(t, sub.FileRef, inner.ParentRef, "parent chain must be consistent")
	assert.NotZero(t, sub.Attr&attrDirectory)

	// Synthetic refs are stable across enumerations.
	second := map[string]FileInfo{}
	require.NoError(t, src.Enumerate(nil, func(fi FileInfo) { second[fi.Name] = fi }))
	assert.Equal(t, byName["inner.txt"].FileRef, second["inner.txt"].FileRef)
}

func TestNeedsRebuild(t *testing.T) {
	assert.True(t, NeedsRebuild(filepath.Join(t.TempDir(), "absent.idx")))
	path := buildAt(t, cDrive())
	assert.False(t, NeedsRebuild(path), "a fresh index is not stale")
}
