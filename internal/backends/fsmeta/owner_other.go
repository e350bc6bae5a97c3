//go:build !unix

package fsmeta

import (
	"os"

	"github.com/systmms/chamber/pkg/secretstore"
)

func owner(fi os.FileInfo) string {
	return secretstore.UnknownOwner
}
