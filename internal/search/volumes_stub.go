//go:build !windows

package search

import "os"

// FixedVolumes on non-Windows hosts falls back to walking the user's home
// directory as a single synthetic drive. There is no change journal, so every
// update is a full rebuild.
func FixedVolumes() []VolumeSource {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []VolumeSource{NewDirSource(home, 'C')}
}
