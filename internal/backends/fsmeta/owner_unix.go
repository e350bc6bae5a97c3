//go:build unix

package fsmeta

import (
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/systmms/chamber/pkg/secretstore"
)

// owner resolves the file's uid to a user name, or the numeric uid when the
// account is unknown to the system.
func owner(fi os.FileInfo) string {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return secretstore.UnknownOwner
	}
	uid := strconv.FormatUint(uint64(st.Uid), 10)
	u, err := user.LookupId(uid)
	if err != nil {
		return uid
	}
	return u.Username
}
