package torrent

import (
	"errors"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

// Config for Session.
type Config struct {
	// Database file to save torrents and session settings. Empty value keeps the session in memory.
	Database string `yaml:"database"`
	// Host to listen for HTTP requests.
	Host string `yaml:"host"`
	// Listen port for HTTP requests.
	Port int `yaml:"port"`
	// Time to wait for in-flight HTTP requests and running completion hooks on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
	// Allowed origins for cross-origin requests. CORS headers are not sent if empty.
	CORSOrigins []string `yaml:"cors-origins"`

	// Interval of the loop that transfers data and pushes updates to subscribers.
	TickInterval time.Duration `yaml:"tick-interval"`
	// Changed torrent records are written to the database at this interval.
	ResumeWriteInterval time.Duration `yaml:"resume-write-interval"`

	// Max size of a torrent file in bytes.
	MaxTorrentSize int64 `yaml:"max-torrent-size"`
	// Max nesting of lists and dictionaries in a torrent file.
	BencodeMaxDepth int `yaml:"bencode-max-depth"`
	// Timeout for downloading a torrent file from an URL.
	TorrentAddHTTPTimeout time.Duration `yaml:"torrent-add-http-timeout"`

	// Number of torrents that can be downloading at the same time. Others wait in the queue. Zero means no limit.
	MaxActiveDownloads int `yaml:"max-active-downloads"`

	// Global download speed limit in bytes/s. Zero means unlimited.
	DownloadLimit int64 `yaml:"download-limit"`
	// Global upload speed limit in bytes/s. Zero means unlimited.
	UploadLimit int64 `yaml:"upload-limit"`
	// Largest accepted value for any speed limit.
	MaxSpeedLimit int64 `yaml:"max-speed-limit"`

	// Throughput offered by the simulated swarm to each torrent in bytes/s.
	SwarmDownloadSpeed int64 `yaml:"swarm-download-speed"`
	SwarmUploadSpeed   int64 `yaml:"swarm-upload-speed"`
	// Random variation of the offered throughput between 0 and 1.
	SwarmJitter float64 `yaml:"swarm-jitter"`
	// A torrent gets no throughput until it has been downloading or seeding for this long.
	// Pausing a torrent disconnects it, so the delay starts again on resume.
	SwarmConnectDelay time.Duration `yaml:"swarm-connect-delay"`
	// After the connect delay the offered throughput grows linearly to full speed over this duration.
	SwarmRampUp time.Duration `yaml:"swarm-ramp-up"`
	// Seed of the swarm random source. Zero picks a random seed.
	SwarmSeed int64 `yaml:"swarm-seed"`

	// Number of undelivered messages a subscriber can have before it is dropped.
	SubscriberQueueLength int `yaml:"subscriber-queue-length"`

	// Command to run when a torrent finishes downloading.
	OnCompleteCmd []string `yaml:"on-complete-cmd"`
	// Torrent files created in this directory are added to the session.
	WatchDir string `yaml:"watch-dir"`

	// Raise the open file limit of the process to this value. Zero keeps the limit.
	MaxOpenFiles uint64 `yaml:"max-open-files"`
}

// DefaultConfig for Session. Do not pass zero value Config to New.
var DefaultConfig = Config{
	Database:        "~/torrentd/session.db",
	Host:            "127.0.0.1",
	Port:            8001,
	ShutdownTimeout: 5 * time.Second,

	TickInterval:        time.Second,
	ResumeWriteInterval: 30 * time.Second,

	MaxTorrentSize:        10 << 20,
	BencodeMaxDepth:       64,
	TorrentAddHTTPTimeout: 30 * time.Second,

	MaxActiveDownloads: 0,

	MaxSpeedLimit: 1 << 40,

	SwarmDownloadSpeed: 4 << 20,
	SwarmUploadSpeed:   1 << 20,
	SwarmJitter:        0.2,
	SwarmConnectDelay:  10 * time.Second,
	SwarmRampUp:        20 * time.Second,

	SubscriberQueueLength: 16,
}

// LoadConfig reads the YAML file at filename over DefaultConfig.
// A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig
	filename, err := homedir.Expand(filename)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch {
	case c.TickInterval <= 0:
		return errors.New("tick interval must be positive")
	case c.ResumeWriteInterval <= 0:
		return errors.New("resume write interval must be positive")
	case c.MaxTorrentSize <= 0:
		return errors.New("max torrent size must be positive")
	case c.MaxSpeedLimit <= 0:
		return errors.New("max speed limit must be positive")
	case c.MaxActiveDownloads < 0:
		return errors.New("max active downloads cannot be negative")
	case c.SwarmConnectDelay < 0 || c.SwarmRampUp < 0:
		return errors.New("swarm connect delay and ramp up cannot be negative")
	case c.SubscriberQueueLength <= 0:
		return errors.New("subscriber queue length must be positive")
	}
	return nil
}
