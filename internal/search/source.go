package search

import (
	"hash/fnv"
	"io/fs"
	"path/filepath"
	"sync/atomic"
)

// FileInfo is one enumerated filesystem entry.
type FileInfo struct {
	Name      string
	FileRef   uint64
	ParentRef uint64
	Attr      uint8
}

// FileChange is one added entry captured from a change journal record.
type FileChange struct {
	FileRef   uint64
	ParentRef uint64
	Name      string
	Attr      uint8
}

// VolumeSource abstracts one indexable volume: enumeration plus a change
// journal. The Windows implementation rides the MFT and USN journal; the
// portable fallback walks directories with synthetic references.
type VolumeSource interface {
	// DriveLetter identifies the volume ('C', ...).
	DriveLetter() rune
	// DriveIndex is DriveLetter - 'A'.
	DriveIndex() uint8
	// VolumeSerial returns the volume serial number, 0 if unknown.
	VolumeSerial() uint32
	// Enumerate yields every file and directory on the volume. It honors
	// cancel within one inner loop iteration.
	Enumerate(cancel *atomic.Bool, yield func(FileInfo)) error
	// JournalPosition captures the current journal id and next USN, the
	// resume point for incremental updates. ErrNoJournal if unsupported.
	JournalPosition() (journalID, nextUsn uint64, err error)
	// ReadChanges streams journal records since sinceUsn. A journal id
	// mismatch returns ErrJournalRotated; the caller falls back to a full
	// rebuild.
	ReadChanges(journalID, sinceUsn uint64, cancel *atomic.Bool) (deleted []uint64, added []FileChange, nextUsn uint64, err error)
}

// DirSource is the recursive-walk fallback. File references are synthesized
// by hashing paths, which keeps parent chains consistent across runs.
type DirSource struct {
	Root   string
	Letter rune
}

// NewDirSource roots a fallback source at dir under the given drive letter.
func NewDirSource(dir string, letter rune) *DirSource {
	return &DirSource{Root: dir, Letter: letter}
}

func (s *DirSource) DriveLetter() rune { return s.Letter }

func (s *DirSource) DriveIndex() uint8 { return uint8(s.Letter - 'A') }

func (s *DirSource) VolumeSerial() uint32 { return 0 }

// pathRef hashes a cleaned path into a synthetic 56-bit file reference.
func pathRef(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(filepath.Clean(path)))
	ref := h.Sum64() & 0x00FFFFFFFFFFFFFF
	if ref == 0 {
		ref = 1
	}
	return ref
}

func (s *DirSource) Enumerate(cancel *atomic.Bool, yield func(FileInfo)) error {
	return filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if cancel != nil && cancel.Load() {
			return filepath.SkipAll
		}
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		var attr uint8
		if d.IsDir() {
			attr = attrDirectory
		}
		parent := uint64(0)
		if path != s.Root {
			parent = pathRef(filepath.Dir(path))
		}
		yield(FileInfo{
			Name:      d.Name(),
			FileRef:   pathRef(path),
			ParentRef: parent,
			Attr:      attr,
		})
		return nil
	})
}

func (s *DirSource) JournalPosition() (uint64, uint64, error) {
	return 0, 0, ErrNoJournal
}

func (s *DirSource) ReadChanges(journalID, sinceUsn uint64, cancel *atomic.Bool) ([]uint64, []FileChange, uint64, error) {
	return nil, nil, 0, ErrJournalRotated
}
