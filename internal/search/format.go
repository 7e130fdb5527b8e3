// Package search implements the on-disk trigram index over filesystem names,
// its incremental update against a volume change journal, and the ranked
// query service.
package search

import (
	"errors"
	"unicode"
	"unicode/utf16"
)

// Index file layout, version 2 (little-endian):
//
//	Header     48 B
//	Entries    entryCount x 24 B
//	StringPool stringPoolSize x 2 B UTF-16 units
//	Trigrams   trigramCount x 12 B, sorted by trigram key
//	Postings   postingDataSize x 4 B
//	Trailer    metaCount u32, then metaCount x 24 B DriveMetadata
const (
	indexMagic   = 0x56454C49 // "VELI"
	indexVersion = 2

	headerSize  = 48
	entrySize   = 24
	trigramSize = 12
	metaSize    = 24
)

// shortNameKey is the reserved trigram bucket for names under 3 codepoints.
const shortNameKey = 0

// maxIndexAgeMillis forces a full rebuild for indexes older than a week.
const maxIndexAgeMillis = 7 * 24 * 60 * 60 * 1000

var (
	// ErrIndexCorrupt covers magic/version mismatch and size inconsistency;
	// callers treat it as "no existing index".
	ErrIndexCorrupt = errors.New("search: index corrupt or incompatible")
	// ErrJournalRotated means the volume journal id changed between runs and
	// incremental update is impossible.
	ErrJournalRotated = errors.New("search: change journal rotated")
	// ErrNoJournal marks volumes without a usable change journal.
	ErrNoJournal = errors.New("search: no change journal")
)

// FileEntry is the fixed 24-byte entry record. A zero FileRef marks a
// tombstoned (deleted) entry.
type FileEntry struct {
	FileRef    uint64
	ParentRef  uint64
	NameOffset uint32
	NameLength uint16
	Attributes uint8
	DriveIndex uint8
}

// attrDirectory mirrors FILE_ATTRIBUTE_DIRECTORY.
const attrDirectory = 0x10

// IsDir reports the directory attribute bit.
func (e FileEntry) IsDir() bool { return e.Attributes&attrDirectory != 0 }

// DriveMetadata is the per-drive journal resume point stored in the trailer.
type DriveMetadata struct {
	DriveLetter  uint16
	VolumeSerial uint32
	LastUsn      uint64
	JournalID    uint64
}

// MakeTrigram packs three UTF-16 units into the 30-bit case-insensitive key.
// Only the low 10 bits of each lowered unit survive; collisions outside basic
// Latin are corrected by the exact substring check at query time.
func MakeTrigram(a, b, c uint16) uint32 {
	return (lower10(a)) | (lower10(b) << 10) | (lower10(c) << 20)
}

func lower10(u uint16) uint32 {
	return uint32(unicode.ToLower(rune(u))) & 0x3FF
}

// makeRefKey combines drive index and file reference into the composite
// primary key used by the ref-to-index map.
func makeRefKey(driveIndex uint8, fileRef uint64) uint64 {
	return uint64(driveIndex)<<56 | fileRef&0x00FFFFFFFFFFFFFF
}

// encodeName converts a filename to the UTF-16 units stored in the pool.
func encodeName(name string) []uint16 {
	return utf16.Encode([]rune(name))
}

// decodeName converts pool units back to a string.
func decodeName(units []uint16) string {
	return string(utf16.Decode(units))
}

// foldUnit lowercases one UTF-16 unit for case-insensitive comparison.
func foldUnit(u uint16) rune {
	return unicode.ToLower(rune(u))
}

// indexOfFolded finds the first case-insensitive occurrence of needle in
// haystack, both as UTF-16 units; -1 when absent.
func indexOfFolded(haystack, needle []uint16) int {
	if len(needle) == 0 {
		return 0
	}
	if len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if foldUnit(haystack[i+j]) != foldUnit(needle[j]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
