//go:build freebsd

package torrent

import "golang.org/x/sys/unix"

func raiseNoFile(value uint64) (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	v := int64(value)
	if v > lim.Max {
		v = lim.Max
	}
	if lim.Cur >= v {
		return uint64(lim.Cur), nil
	}
	lim.Cur = v
	return uint64(v), unix.Setrlimit(unix.RLIMIT_NOFILE, &lim)
}
