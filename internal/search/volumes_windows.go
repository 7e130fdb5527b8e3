//go:build windows

package search

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync/atomic"
	"unicode/utf16"

	"golang.org/x/sys/windows"
)

// USN ioctls and reason bits; x/sys/windows does not export these.
const (
	fsctlEnumUsnData     = 0x000900b3
	fsctlReadUsnJournal  = 0x000900bb
	fsctlQueryUsnJournal = 0x000900f4

	usnReasonFileCreate    = 0x00000100
	usnReasonFileDelete    = 0x00000200
	usnReasonRenameOldName = 0x00001000
	usnReasonRenameNewName = 0x00002000

	driveFixed = windows.DRIVE_FIXED
)

// FixedVolumes lists the fixed drives as journal-capable sources.
func FixedVolumes() []VolumeSource {
	var out []VolumeSource
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		log.Printf("search: GetLogicalDrives: %v", err)
		return out
	}
	for i := 0; i < 26; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		letter := rune('A' + i)
		root, _ := windows.UTF16PtrFromString(fmt.Sprintf("%c:\\", letter))
		if windows.GetDriveType(root) != driveFixed {
			continue
		}
		out = append(out, &winVolume{letter: letter})
	}
	return out
}

// winVolume enumerates a drive through the MFT and resumes through the USN
// journal; enumeration falls back to a directory walk when the volume handle
// is unavailable (non-NTFS, insufficient rights).
type winVolume struct {
	letter rune
}

func (v *winVolume) DriveLetter() rune { return v.letter }

func (v *winVolume) DriveIndex() uint8 { return uint8(v.letter - 'A') }

func (v *winVolume) VolumeSerial() uint32 {
	root, _ := windows.UTF16PtrFromString(fmt.Sprintf("%c:\\", v.letter))
	var serial uint32
	if err := windows.GetVolumeInformation(root, nil, 0, &serial, nil, nil, nil, 0); err != nil {
		return 0
	}
	return serial
}

func (v *winVolume) openVolume() (windows.Handle, error) {
	path, _ := windows.UTF16PtrFromString(fmt.Sprintf(`\\.\%c:`, v.letter))
	return windows.CreateFile(path, windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
}

func (v *winVolume) Enumerate(cancel *atomic.Bool, yield func(FileInfo)) error {
	h, err := v.openVolume()
	if err != nil {
		log.Printf("search: opening volume %c: %v; walking instead", v.letter, err)
		return v.walkFallback(cancel, yield)
	}
	defer windows.CloseHandle(h)

	// MFT_ENUM_DATA_V0: StartFileReferenceNumber u64, LowUsn i64, HighUsn i64.
	var enum [24]byte
	binary.LittleEndian.PutUint64(enum[8:], 0)
	binary.LittleEndian.PutUint64(enum[16:], uint64(^int64(0)>>1))

	buf := make([]byte, 1<<20)
	for {
		if cancel != nil && cancel.Load() {
			return nil
		}
		var returned uint32
		err := windows.DeviceIoControl(h, fsctlEnumUsnData,
			&enum[0], uint32(len(enum)),
			&buf[0], uint32(len(buf)), &returned, nil)
		if err != nil {
			if err == windows.ERROR_HANDLE_EOF {
				return nil
			}
			log.Printf("search: FSCTL_ENUM_USN_DATA on %c: %v; walking instead", v.letter, err)
			return v.walkFallback(cancel, yield)
		}
		if returned <= 8 {
			return nil
		}
		// Leading USN is the continuation cookie.
		binary.LittleEndian.PutUint64(enum[0:], binary.LittleEndian.Uint64(buf))
		parseUsnRecords(buf[8:returned], cancel, func(rec usnRecord) {
			yield(FileInfo{
				Name:      rec.name,
				FileRef:   rec.fileRef,
				ParentRef: rec.parentRef,
				Attr:      uint8(rec.attributes),
			})
		})
	}
}

func (v *winVolume) walkFallback(cancel *atomic.Bool, yield func(FileInfo)) error {
	dir := NewDirSource(fmt.Sprintf(`%c:\`, v.letter), v.letter)
	return dir.Enumerate(cancel, yield)
}

func (v *winVolume) JournalPosition() (uint64, uint64, error) {
	h, err := v.openVolume()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoJournal, err)
	}
	defer windows.CloseHandle(h)

	// USN_JOURNAL_DATA_V0: UsnJournalID u64, FirstUsn i64, NextUsn i64, ...
	var data [56]byte
	var returned uint32
	if err := windows.DeviceIoControl(h, fsctlQueryUsnJournal, nil, 0,
		&data[0], uint32(len(data)), &returned, nil); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoJournal, err)
	}
	journalID := binary.LittleEndian.Uint64(data[0:])
	nextUsn := binary.LittleEndian.Uint64(data[16:])
	return journalID, nextUsn, nil
}

func (v *winVolume) ReadChanges(journalID, sinceUsn uint64, cancel *atomic.Bool) ([]uint64, []FileChange, uint64, error) {
	h, err := v.openVolume()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrNoJournal, err)
	}
	defer windows.CloseHandle(h)

	var data [56]byte
	var returned uint32
	if err := windows.DeviceIoControl(h, fsctlQueryUsnJournal, nil, 0,
		&data[0], uint32(len(data)), &returned, nil); err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrNoJournal, err)
	}
	currentID := binary.LittleEndian.Uint64(data[0:])
	endUsn := binary.LittleEndian.Uint64(data[16:])
	if currentID != journalID {
		return nil, nil, 0, ErrJournalRotated
	}

	// READ_USN_JOURNAL_DATA_V0: StartUsn i64, ReasonMask u32, ReturnOnlyOnClose
	// u32, Timeout i64, BytesToWaitFor i64, UsnJournalID u64.
	var read [40]byte
	binary.LittleEndian.PutUint64(read[0:], sinceUsn)
	binary.LittleEndian.PutUint32(read[8:],
		usnReasonFileCreate|usnReasonFileDelete|usnReasonRenameOldName|usnReasonRenameNewName)
	binary.LittleEndian.PutUint64(read[32:], journalID)

	var deleted []uint64
	var added []FileChange
	buf := make([]byte, 64*1024)

	for {
		if cancel != nil && cancel.Load() {
			break
		}
		if err := windows.DeviceIoControl(h, fsctlReadUsnJournal,
			&read[0], uint32(len(read)),
			&buf[0], uint32(len(buf)), &returned, nil); err != nil {
			break
		}
		if returned <= 8 {
			break
		}
		next := binary.LittleEndian.Uint64(buf)
		parseUsnRecords(buf[8:returned], cancel, func(rec usnRecord) {
			if rec.reason&(usnReasonFileDelete|usnReasonRenameOldName) != 0 {
				deleted = append(deleted, rec.fileRef)
			}
			if rec.reason&(usnReasonFileCreate|usnReasonRenameNewName) != 0 {
				added = append(added, FileChange{
					FileRef:   rec.fileRef,
					ParentRef: rec.parentRef,
					Name:      rec.name,
					Attr:      uint8(rec.attributes),
				})
			}
		})
		binary.LittleEndian.PutUint64(read[0:], next)
		if next >= endUsn {
			break
		}
	}
	return deleted, added, endUsn, nil
}

type usnRecord struct {
	fileRef    uint64
	parentRef  uint64
	reason     uint32
	attributes uint32
	name       string
}

// parseUsnRecords walks packed USN_RECORD_V2 structures.
func parseUsnRecords(buf []byte, cancel *atomic.Bool, yield func(usnRecord)) {
	le := binary.LittleEndian
	for len(buf) >= 60 {
		if cancel != nil && cancel.Load() {
			return
		}
		recLen := le.Uint32(buf)
		if recLen == 0 || int(recLen) > len(buf) {
			return
		}
		rec := usnRecord{
			fileRef:    le.Uint64(buf[8:]),
			parentRef:  le.Uint64(buf[16:]),
			reason:     le.Uint32(buf[40:]),
			attributes: le.Uint32(buf[52:]),
		}
		nameLen := int(le.Uint16(buf[56:])) / 2
		nameOff := int(le.Uint16(buf[58:]))
		if nameOff+nameLen*2 <= int(recLen) {
			units := make([]uint16, nameLen)
			for i := range units {
				units[i] = le.Uint16(buf[nameOff+2*i:])
			}
			rec.name = string(utf16.Decode(units))
		}
		yield(rec)
		buf = buf[recLen:]
	}
}
