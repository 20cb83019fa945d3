package torrent

import "errors"

func raiseNoFile(value uint64) (uint64, error) {
	return 0, errors.New("open file limit cannot be changed on windows")
}
