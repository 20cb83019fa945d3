//go:build !windows && !freebsd

package torrent

import "golang.org/x/sys/unix"

// raiseNoFile raises the soft open files limit to value, capped by the hard limit.
func raiseNoFile(value uint64) (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	if value > lim.Max {
		value = lim.Max
	}
	if lim.Cur >= value {
		return lim.Cur, nil
	}
	lim.Cur = value
	return value, unix.Setrlimit(unix.RLIMIT_NOFILE, &lim)
}
