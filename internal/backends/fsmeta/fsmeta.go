// Package fsmeta derives secret metadata from filesystem entries.
package fsmeta

import (
	"os"

	"github.com/systmms/chamber/pkg/secretstore"
)

// FromFileInfo builds metadata from a stat result. Version is always
// secretstore.DefaultVersion; the owner falls back to secretstore.UnknownOwner.
func FromFileInfo(fi os.FileInfo) secretstore.Metadata {
	if fi == nil {
		return secretstore.PlaceholderMetadata()
	}
	return secretstore.Metadata{
		Version:  secretstore.DefaultVersion,
		Modified: fi.ModTime(),
		Owner:    owner(fi),
	}
}

// Stat is FromFileInfo for a path. A failed stat yields placeholder metadata.
func Stat(path string) secretstore.Metadata {
	fi, err := os.Stat(path)
	if err != nil {
		return secretstore.PlaceholderMetadata()
	}
	return FromFileInfo(fi)
}
