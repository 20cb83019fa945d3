package torrent

import (
	"encoding/json"

	"github.com/seedbox/torrentd/internal/rpctypes"
)

// GlobalLimits returns the download and upload limits shared by all torrents in bytes/s.
// Zero means unlimited.
func (s *Session) GlobalLimits() (download, upload int64) {
	return s.limiter.Global()
}

// SetGlobalLimits changes the limits shared by all torrents and saves them to the database.
// New limits are applied on the next tick.
func (s *Session) SetGlobalLimits(download, upload int64) error {
	if err := s.checkLimits(download, upload); err != nil {
		return err
	}
	s.mLimits.Lock()
	defer s.mLimits.Unlock()
	if s.db != nil {
		b, err := json.Marshal(rpctypes.GlobalLimits{DownloadLimit: download, UploadLimit: upload})
		if err != nil {
			return err
		}
		if err = s.db.PutSetting(globalLimitsKey, b); err != nil {
			return err
		}
	}
	s.limiter.SetGlobal(download, upload)
	s.log.Infof("global limits: download=%d upload=%d", download, upload)
	return nil
}
