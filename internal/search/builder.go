package search

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sort"
	"sync/atomic"
	"time"
)

// ProgressFunc reports build progress in [0,1] with a status line.
type ProgressFunc func(progress float64, status string)

// BuildStats summarizes one build or incremental update.
type BuildStats struct {
	FilesIndexed   uint32
	FilesAdded     uint32
	FilesRemoved   uint32
	TrigramsBuilt  uint32
	WasIncremental bool
}

// IndexBuilder accumulates entries, the name pool and trigram postings in
// memory, then publishes the whole file atomically.
type IndexBuilder struct {
	entries    []FileEntry
	pool       []uint16
	postings   map[uint32][]uint32
	shortNames []uint32
	refToIndex map[uint64]uint32
	meta       []DriveMetadata
}

// NewIndexBuilder returns an empty builder.
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{
		postings:   make(map[uint32][]uint32),
		refToIndex: make(map[uint64]uint32),
	}
}

func (b *IndexBuilder) reset() {
	b.entries = b.entries[:0]
	b.pool = b.pool[:0]
	b.postings = make(map[uint32][]uint32)
	b.shortNames = b.shortNames[:0]
	b.refToIndex = make(map[uint64]uint32)
	b.meta = b.meta[:0]
}

// Build enumerates every source and writes a fresh index to outputPath.
func (b *IndexBuilder) Build(outputPath string, sources []VolumeSource, cancel *atomic.Bool, progress ProgressFunc) (BuildStats, error) {
	var stats BuildStats
	b.reset()

	report(progress, 0, "Scanning drives...")

	for i, src := range sources {
		if cancel != nil && cancel.Load() {
			return stats, nil
		}
		base := float64(i) / float64(len(sources)) * 0.8
		span := 0.8 / float64(len(sources))
		driveCount := uint32(0)
		letter := src.DriveLetter()
		driveIndex := src.DriveIndex()

		report(progress, base, fmt.Sprintf("Indexing %c:\\ ...", letter))

		meta := DriveMetadata{DriveLetter: uint16(letter), VolumeSerial: src.VolumeSerial()}
		err := src.Enumerate(cancel, func(fi FileInfo) {
			b.addEntry(fi.FileRef, fi.ParentRef, fi.Name, fi.Attr, driveIndex)
			stats.FilesIndexed++
			driveCount++
			if driveCount%5000 == 0 {
				within := float64(driveCount) / 500000.0
				if within > 0.95 {
					within = 0.95
				}
				report(progress, base+within*span, fmt.Sprintf("Indexing %c:\\ - %d files...", letter, driveCount))
			}
		})
		if err != nil {
			log.Printf("search: enumerating %c: %v", letter, err)
		}

		if id, usn, err := src.JournalPosition(); err == nil {
			meta.JournalID = id
			meta.LastUsn = usn
		}
		b.meta = append(b.meta, meta)
	}

	if cancel != nil && cancel.Load() {
		return stats, nil
	}

	report(progress, 0.85, "Building trigram index...")
	for idx := range b.entries {
		if cancel != nil && cancel.Load() {
			return stats, nil
		}
		b.addTrigrams(uint32(idx), b.nameUnits(uint32(idx)))
	}
	stats.TrigramsBuilt = uint32(len(b.postings))

	report(progress, 0.9, "Writing index file...")
	if err := b.writeToFile(outputPath); err != nil {
		return stats, err
	}
	report(progress, 1, "Complete")

	stats.FilesAdded = stats.FilesIndexed
	return stats, nil
}

// IncrementalUpdate applies journal changes on top of the existing index.
// It falls back to a full rebuild when no usable index exists, a journal
// rotated, or the change volume exceeds a quarter of the entries.
func (b *IndexBuilder) IncrementalUpdate(indexPath string, sources []VolumeSource, cancel *atomic.Bool, progress ProgressFunc) (BuildStats, error) {
	var stats BuildStats
	stats.WasIncremental = true

	if err := b.loadExisting(indexPath); err != nil {
		return b.Build(indexPath, sources, cancel, progress)
	}

	report(progress, 0, "Checking for changes...")

	srcByLetter := make(map[uint16]VolumeSource, len(sources))
	for _, s := range sources {
		srcByLetter[uint16(s.DriveLetter())] = s
	}

	var deleted []uint64
	var added []FileChange
	addedDrive := make(map[int]uint8)

	for i := range b.meta {
		if cancel != nil && cancel.Load() {
			return stats, nil
		}
		meta := &b.meta[i]
		src, ok := srcByLetter[meta.DriveLetter]
		if !ok {
			continue
		}
		report(progress, float64(i)/float64(len(b.meta))*0.5,
			fmt.Sprintf("Scanning changes on %c:\\", rune(meta.DriveLetter)))

		del, add, nextUsn, err := src.ReadChanges(meta.JournalID, meta.LastUsn, cancel)
		if err != nil {
			// Rotation or any journal failure invalidates the resume point.
			log.Printf("search: journal on %c: %v; rebuilding", rune(meta.DriveLetter), err)
			return b.Build(indexPath, sources, cancel, progress)
		}
		driveIndex := src.DriveIndex()
		for _, ref := range del {
			deleted = append(deleted, makeRefKey(driveIndex, ref))
		}
		for _, ch := range add {
			addedDrive[len(added)] = driveIndex
			added = append(added, ch)
		}
		meta.LastUsn = nextUsn
	}

	if cancel != nil && cancel.Load() {
		return stats, nil
	}

	total := len(deleted) + len(added)
	if total > len(b.entries)/4 {
		report(progress, 0, "Many changes detected, rebuilding...")
		return b.Build(indexPath, sources, cancel, progress)
	}
	if total == 0 {
		report(progress, 1, "Index is up to date")
		return stats, nil
	}

	report(progress, 0.6, "Applying changes...")

	deletedSet := make(map[uint64]struct{}, len(deleted))
	for _, key := range deleted {
		deletedSet[key] = struct{}{}
	}
	for key := range deletedSet {
		idx, ok := b.refToIndex[key]
		if !ok {
			continue
		}
		b.removeTrigrams(idx)
		b.entries[idx].FileRef = 0
		delete(b.refToIndex, key)
		stats.FilesRemoved++
	}

	for i, ch := range added {
		if cancel != nil && cancel.Load() {
			return stats, nil
		}
		idx := b.addEntry(ch.FileRef, ch.ParentRef, ch.Name, ch.Attr, addedDrive[i])
		b.addTrigrams(idx, b.nameUnits(idx))
		stats.FilesAdded++
	}

	stats.FilesIndexed = uint32(len(b.entries))
	stats.TrigramsBuilt = uint32(len(b.postings))

	report(progress, 0.9, "Writing updated index...")
	for i := range b.meta {
		if src, ok := srcByLetter[b.meta[i].DriveLetter]; ok {
			if id, usn, err := src.JournalPosition(); err == nil {
				b.meta[i].JournalID = id
				b.meta[i].LastUsn = usn
			}
		}
	}
	if err := b.writeToFile(indexPath); err != nil {
		return stats, err
	}
	report(progress, 1, "Update complete")
	return stats, nil
}

// NeedsRebuild reports whether the index is unreadable or older than a week.
func NeedsRebuild(indexPath string) bool {
	idx, err := OpenDiskIndex(indexPath)
	if err != nil {
		return true
	}
	defer idx.Close()
	age := uint64(time.Now().UnixMilli()) - idx.BuildTimestamp()
	return age > maxIndexAgeMillis
}

func report(progress ProgressFunc, p float64, status string) {
	if progress != nil {
		progress(p, status)
	}
}

func (b *IndexBuilder) addEntry(fileRef, parentRef uint64, name string, attr, driveIndex uint8) uint32 {
	idx := uint32(len(b.entries))
	units := encodeName(name)
	if len(units) > 0xFFFF {
		units = units[:0xFFFF]
	}
	nameOffset := uint32(len(b.pool))
	b.pool = append(b.pool, units...)

	b.entries = append(b.entries, FileEntry{
		FileRef:    fileRef,
		ParentRef:  parentRef,
		NameOffset: nameOffset,
		NameLength: uint16(len(units)),
		Attributes: attr,
		DriveIndex: driveIndex,
	})
	b.refToIndex[makeRefKey(driveIndex, fileRef)] = idx
	return idx
}

func (b *IndexBuilder) nameUnits(idx uint32) []uint16 {
	e := b.entries[idx]
	return b.pool[e.NameOffset : uint32(e.NameOffset)+uint32(e.NameLength)]
}

func (b *IndexBuilder) addTrigrams(idx uint32, name []uint16) {
	if len(name) < 3 {
		b.shortNames = append(b.shortNames, idx)
		return
	}
	for i := 0; i+2 < len(name); i++ {
		tri := MakeTrigram(name[i], name[i+1], name[i+2])
		b.postings[tri] = append(b.postings[tri], idx)
	}
}

func (b *IndexBuilder) removeTrigrams(idx uint32) {
	name := b.nameUnits(idx)
	if len(name) < 3 {
		b.shortNames = removeValue(b.shortNames, idx)
		return
	}
	for i := 0; i+2 < len(name); i++ {
		tri := MakeTrigram(name[i], name[i+1], name[i+2])
		b.postings[tri] = removeValue(b.postings[tri], idx)
		if len(b.postings[tri]) == 0 {
			delete(b.postings, tri)
		}
	}
}

func removeValue(list []uint32, v uint32) []uint32 {
	for i, x := range list {
		if x == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// writeToFile serializes the builder and publishes atomically via a .tmp
// rename.
func (b *IndexBuilder) writeToFile(path string) error {
	type triList struct {
		key  uint32
		list []uint32
	}
	sorted := make([]triList, 0, len(b.postings)+1)
	if len(b.shortNames) > 0 {
		short := append([]uint32(nil), b.shortNames...)
		sortDedup(&short)
		sorted = append(sorted, triList{shortNameKey, short})
	}
	for tri, list := range b.postings {
		if len(list) == 0 {
			continue
		}
		cp := append([]uint32(nil), list...)
		sortDedup(&cp)
		sorted = append(sorted, triList{tri, cp})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })

	postingTotal := 0
	for _, t := range sorted {
		postingTotal += len(t.list)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("search: creating %s: %w", tmp, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	le := binary.LittleEndian

	var header [headerSize]byte
	le.PutUint32(header[0:], indexMagic)
	le.PutUint32(header[4:], indexVersion)
	le.PutUint32(header[8:], uint32(len(b.entries)))
	le.PutUint32(header[12:], uint32(len(b.pool)))
	le.PutUint32(header[16:], uint32(len(sorted)))
	le.PutUint32(header[20:], uint32(postingTotal))
	le.PutUint64(header[24:], uint64(time.Now().UnixMilli()))
	w.Write(header[:])

	var rec [entrySize]byte
	for _, e := range b.entries {
		le.PutUint64(rec[0:], e.FileRef)
		le.PutUint64(rec[8:], e.ParentRef)
		le.PutUint32(rec[16:], e.NameOffset)
		le.PutUint16(rec[20:], e.NameLength)
		rec[22] = e.Attributes
		rec[23] = e.DriveIndex
		w.Write(rec[:])
	}

	var u16 [2]byte
	for _, u := range b.pool {
		le.PutUint16(u16[:], u)
		w.Write(u16[:])
	}

	var tri [trigramSize]byte
	offset := uint32(0)
	for _, t := range sorted {
		le.PutUint32(tri[0:], t.key)
		le.PutUint32(tri[4:], offset)
		le.PutUint32(tri[8:], uint32(len(t.list)))
		w.Write(tri[:])
		offset += uint32(len(t.list))
	}

	var u32 [4]byte
	for _, t := range sorted {
		for _, v := range t.list {
			le.PutUint32(u32[:], v)
			w.Write(u32[:])
		}
	}

	le.PutUint32(u32[:], uint32(len(b.meta)))
	w.Write(u32[:])
	var m [metaSize]byte
	for _, meta := range b.meta {
		le.PutUint16(m[0:], meta.DriveLetter)
		le.PutUint16(m[2:], 0)
		le.PutUint32(m[4:], meta.VolumeSerial)
		le.PutUint64(m[8:], meta.LastUsn)
		le.PutUint64(m[16:], meta.JournalID)
		w.Write(m[:])
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("search: writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("search: closing %s: %w", tmp, err)
	}
	os.Remove(path)
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("search: publishing %s: %w", path, err)
	}
	return nil
}

func sortDedup(list *[]uint32) {
	l := *list
	sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
	out := l[:0]
	var prev uint32
	for i, v := range l {
		if i == 0 || v != prev {
			out = append(out, v)
		}
		prev = v
	}
	*list = out
}

// loadExisting rehydrates builder state from an index file so incremental
// changes can be applied on top.
func (b *IndexBuilder) loadExisting(path string) error {
	idx, err := OpenDiskIndex(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	b.reset()
	count := idx.EntryCount()
	for i := uint32(0); i < count; i++ {
		e := idx.Entry(i)
		b.entries = append(b.entries, e)
	}
	// The pool is copied verbatim; entry offsets stay valid.
	b.pool = make([]uint16, 0, idx.stringPoolSize)
	le := binary.LittleEndian
	for off := idx.poolOff; off < idx.trigramsOff; off += 2 {
		b.pool = append(b.pool, le.Uint16(idx.data[off:]))
	}
	for i := uint32(0); i < count; i++ {
		if b.entries[i].FileRef == 0 {
			continue
		}
		b.refToIndex[makeRefKey(b.entries[i].DriveIndex, b.entries[i].FileRef)] = i
		b.addTrigrams(i, b.nameUnits(i))
	}
	b.meta = append(b.meta, idx.Metadata()...)
	return nil
}
