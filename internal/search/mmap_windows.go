//go:build windows

package search

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapFile maps path read-only via CreateFileMapping and returns the bytes
// plus an unmap func that also releases the handles.
func mapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	size := st.Size()
	if size == 0 {
		f.Close()
		return nil, nil, fmt.Errorf("%w: empty file", ErrIndexCorrupt)
	}

	mapping, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("search: CreateFileMapping %s: %w", path, err)
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(mapping)
		f.Close()
		return nil, nil, fmt.Errorf("search: MapViewOfFile %s: %w", path, err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	unmap := func() error {
		err := windows.UnmapViewOfFile(addr)
		windows.CloseHandle(mapping)
		f.Close()
		return err
	}
	return data, unmap, nil
}
