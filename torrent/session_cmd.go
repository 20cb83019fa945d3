package torrent

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/seedbox/torrentd/internal/store"
)

func (s *Session) runOnCompleteCmd(r store.Record) {
	if len(s.config.OnCompleteCmd) == 0 {
		return
	}
	s.hooks.Add(1)
	go func() {
		defer s.hooks.Done()
		s.execOnCompleteCmd(r)
	}()
}

func (s *Session) execOnCompleteCmd(r store.Record) {
	command, err := exec.LookPath(s.config.OnCompleteCmd[0])
	if err != nil {
		s.log.Errorf("error resolving completion hook command path: %s", err)
		return
	}

	cmd := exec.CommandContext(s.hooksCtx, command, s.config.OnCompleteCmd[1:]...)

	cmd.Env = append(os.Environ(),
		"TORRENTD_TORRENT_ADDED="+fmt.Sprint(r.AddedAt.Unix()),
		"TORRENTD_TORRENT_HASH="+r.InfoHash.String(),
		"TORRENTD_TORRENT_ID="+r.ID,
		"TORRENTD_TORRENT_NAME="+r.Name,
		"TORRENTD_TORRENT_SIZE="+fmt.Sprint(r.Size))

	s.log.Debugf("executing completion hook for torrent %s: %s", r.ID, cmd.String())

	if err := cmd.Run(); err != nil {
		s.log.Errorf("completion hook execution failed: %s", err)
	}
}
