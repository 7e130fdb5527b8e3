package search

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// DiskIndex is a read-only view over a memory-mapped index file. All section
// accessors decode straight out of the mapping; the only materialized state
// is the ref-to-index map used for parent-chain walks.
type DiskIndex struct {
	data   []byte
	unmap  func() error
	closed bool

	entryCount     uint32
	stringPoolSize uint32
	trigramCount   uint32
	postingCount   uint32
	buildTimestamp uint64

	entriesOff  int
	poolOff     int
	trigramsOff int
	postingsOff int

	meta       []DriveMetadata
	refToIndex map[uint64]uint32
}

// OpenDiskIndex maps an index file and validates its header and section
// sizes. Mismatches return ErrIndexCorrupt.
func OpenDiskIndex(path string) (*DiskIndex, error) {
	data, unmap, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	idx := &DiskIndex{data: data, unmap: unmap}
	if err := idx.parse(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

func (d *DiskIndex) parse() error {
	if len(d.data) < headerSize {
		return fmt.Errorf("%w: file shorter than header", ErrIndexCorrupt)
	}
	le := binary.LittleEndian
	if le.Uint32(d.data[0:]) != indexMagic {
		return fmt.Errorf("%w: bad magic", ErrIndexCorrupt)
	}
	if le.Uint32(d.data[4:]) != indexVersion {
		return fmt.Errorf("%w: version %d", ErrIndexCorrupt, le.Uint32(d.data[4:]))
	}
	d.entryCount = le.Uint32(d.data[8:])
	d.stringPoolSize = le.Uint32(d.data[12:])
	d.trigramCount = le.Uint32(d.data[16:])
	d.postingCount = le.Uint32(d.data[20:])
	d.buildTimestamp = le.Uint64(d.data[24:])

	d.entriesOff = headerSize
	d.poolOff = d.entriesOff + int(d.entryCount)*entrySize
	d.trigramsOff = d.poolOff + int(d.stringPoolSize)*2
	d.postingsOff = d.trigramsOff + int(d.trigramCount)*trigramSize
	trailerOff := d.postingsOff + int(d.postingCount)*4

	if trailerOff+4 > len(d.data) {
		return fmt.Errorf("%w: sections exceed file size", ErrIndexCorrupt)
	}
	metaCount := le.Uint32(d.data[trailerOff:])
	if trailerOff+4+int(metaCount)*metaSize > len(d.data) {
		return fmt.Errorf("%w: trailer exceeds file size", ErrIndexCorrupt)
	}
	d.meta = make([]DriveMetadata, metaCount)
	for i := range d.meta {
		off := trailerOff + 4 + i*metaSize
		d.meta[i] = DriveMetadata{
			DriveLetter:  le.Uint16(d.data[off:]),
			VolumeSerial: le.Uint32(d.data[off+4:]),
			LastUsn:      le.Uint64(d.data[off+8:]),
			JournalID:    le.Uint64(d.data[off+16:]),
		}
	}

	d.refToIndex = make(map[uint64]uint32, d.entryCount)
	for i := uint32(0); i < d.entryCount; i++ {
		e := d.Entry(i)
		if e.FileRef != 0 {
			d.refToIndex[makeRefKey(e.DriveIndex, e.FileRef)] = i
		}
	}
	return nil
}

// Close drops the mapping.
func (d *DiskIndex) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.refToIndex = nil
	d.data = nil
	if d.unmap != nil {
		return d.unmap()
	}
	return nil
}

// EntryCount returns the stored entry count, tombstones included.
func (d *DiskIndex) EntryCount() uint32 { return d.entryCount }

// BuildTimestamp returns the header build time in host milliseconds.
func (d *DiskIndex) BuildTimestamp() uint64 { return d.buildTimestamp }

// Metadata returns the per-drive journal resume points.
func (d *DiskIndex) Metadata() []DriveMetadata { return d.meta }

// Entry decodes the i-th 24-byte entry record.
func (d *DiskIndex) Entry(i uint32) FileEntry {
	le := binary.LittleEndian
	off := d.entriesOff + int(i)*entrySize
	return FileEntry{
		FileRef:    le.Uint64(d.data[off:]),
		ParentRef:  le.Uint64(d.data[off+8:]),
		NameOffset: le.Uint32(d.data[off+16:]),
		NameLength: le.Uint16(d.data[off+20:]),
		Attributes: d.data[off+22],
		DriveIndex: d.data[off+23],
	}
}

// NameUnits returns the entry's name as UTF-16 units.
func (d *DiskIndex) NameUnits(i uint32) []uint16 {
	e := d.Entry(i)
	le := binary.LittleEndian
	units := make([]uint16, e.NameLength)
	for j := range units {
		units[j] = le.Uint16(d.data[d.poolOff+2*(int(e.NameOffset)+j):])
	}
	return units
}

// Name returns the entry's name as a string.
func (d *DiskIndex) Name(i uint32) string {
	return decodeName(d.NameUnits(i))
}

// Postings returns the sorted entry indices for a trigram key; nil when the
// key is absent. The table is binary-searched by key.
func (d *DiskIndex) Postings(trigram uint32) []uint32 {
	le := binary.LittleEndian
	n := int(d.trigramCount)
	pos := sort.Search(n, func(i int) bool {
		return le.Uint32(d.data[d.trigramsOff+i*trigramSize:]) >= trigram
	})
	if pos >= n || le.Uint32(d.data[d.trigramsOff+pos*trigramSize:]) != trigram {
		return nil
	}
	off := le.Uint32(d.data[d.trigramsOff+pos*trigramSize+4:])
	count := le.Uint32(d.data[d.trigramsOff+pos*trigramSize+8:])
	out := make([]uint32, count)
	for i := range out {
		out[i] = le.Uint32(d.data[d.postingsOff+4*(int(off)+i):])
	}
	return out
}

// ShortNameIndices returns the reserved bucket of names under 3 codepoints.
func (d *DiskIndex) ShortNameIndices() []uint32 {
	return d.Postings(shortNameKey)
}

// BuildFullPath reconstructs an entry's absolute path by walking parent
// references within the same drive, prepending the drive letter.
func (d *DiskIndex) BuildFullPath(entryIndex uint32) string {
	if entryIndex >= d.entryCount {
		return ""
	}
	var parts []string
	drive := d.Entry(entryIndex).DriveIndex
	current := entryIndex
	for {
		e := d.Entry(current)
		name := d.Name(current)
		if name == "" {
			break
		}
		parts = append(parts, name)
		next, ok := d.refToIndex[makeRefKey(drive, e.ParentRef)]
		if !ok || next == current {
			break
		}
		current = next
	}
	if len(parts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('A' + drive)
	sb.WriteByte(':')
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteByte('\\')
		sb.WriteString(parts[i])
	}
	return sb.String()
}
