package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/log"
	"github.com/hokaccha/go-prettyjson"
	"github.com/seedbox/torrentd/internal/bencode"
	"github.com/seedbox/torrentd/internal/console"
	"github.com/seedbox/torrentd/internal/jsonutil"
	"github.com/seedbox/torrentd/internal/logger"
	"github.com/seedbox/torrentd/internal/metainfo"
	"github.com/seedbox/torrentd/internal/rpctypes"
	"github.com/seedbox/torrentd/rpcclient"
	"github.com/seedbox/torrentd/torrent"
	"github.com/urfave/cli"
)

var (
	app = cli.NewApp()
	clt *rpcclient.Client
)

func main() {
	app.Version = torrent.Version
	app.Usage = "Torrent session manager"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug,d",
			Usage: "enable debug log",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			logger.SetLevel(log.DEBUG)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "server",
			Usage: "run torrentd server",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config,c",
					Usage: "read config from `FILE`",
					Value: "~/.torrentd.yaml",
				},
			},
			Action: handleServer,
		},
		{
			Name:  "client",
			Usage: "send rpc request to server",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "url",
					Usage: "URL of torrentd server",
					Value: "http://127.0.0.1:" + fmt.Sprint(torrent.DefaultConfig.Port),
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "wait for server to be ready",
					Value: 0,
				},
			},
			Before: handleBeforeClient,
			After:  handleAfterClient,
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "list torrents",
					Action: handleList,
				},
				{
					Name:  "add",
					Usage: "add torrent from file or http(s) URL",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:     "torrent,t",
							Usage:    "file or URL",
							Required: true,
						},
						cli.BoolFlag{
							Name:  "stopped",
							Usage: "do not start torrent automatically",
						},
						cli.BoolFlag{
							Name:  "stop-after-download",
							Usage: "stop the torrent after download is finished",
						},
						cli.Int64Flag{
							Name:  "download-limit",
							Usage: "download speed limit in bytes/s",
						},
						cli.Int64Flag{
							Name:  "upload-limit",
							Usage: "upload speed limit in bytes/s",
						},
					},
					Action: handleAdd,
				},
				{
					Name:   "get",
					Usage:  "get torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handleGet,
				},
				{
					Name:   "pause",
					Usage:  "pause torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handlePause,
				},
				{
					Name:   "resume",
					Usage:  "resume torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handleResume,
				},
				{
					Name:  "limits",
					Usage: "set speed limits of torrent",
					Flags: []cli.Flag{
						idFlag,
						cli.Int64Flag{
							Name:  "download",
							Usage: "download speed limit in bytes/s, 0 is unlimited",
						},
						cli.Int64Flag{
							Name:  "upload",
							Usage: "upload speed limit in bytes/s, 0 is unlimited",
						},
					},
					Action: handleLimits,
				},
				{
					Name:   "remove",
					Usage:  "remove torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handleRemove,
				},
				{
					Name:   "magnet",
					Usage:  "get magnet link",
					Flags:  []cli.Flag{idFlag},
					Action: handleMagnet,
				},
				{
					Name:  "save-torrent",
					Usage: "save .torrent file of torrent",
					Flags: []cli.Flag{
						idFlag,
						cli.StringFlag{
							Name:     "out,o",
							Usage:    "output file",
							Required: true,
						},
					},
					Action: handleSaveTorrent,
				},
				{
					Name:   "stats",
					Usage:  "get stats of torrents",
					Action: handleStats,
				},
				{
					Name:   "session-stats",
					Usage:  "get stats of the session",
					Action: handleSessionStats,
				},
				{
					Name:  "global-limits",
					Usage: "get or set global speed limits",
					Flags: []cli.Flag{
						cli.Int64Flag{
							Name:  "download",
							Usage: "download speed limit in bytes/s, 0 is unlimited",
							Value: -1,
						},
						cli.Int64Flag{
							Name:  "upload",
							Usage: "upload speed limit in bytes/s, 0 is unlimited",
							Value: -1,
						},
					},
					Action: handleGlobalLimits,
				},
				{
					Name:   "console",
					Usage:  "show client console",
					Action: handleConsole,
				},
			},
		},
		{
			Name:  "torrent",
			Usage: "manage torrent files",
			Subcommands: []cli.Command{
				{
					Name:  "show",
					Usage: "show contents of the torrent file",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:     "file,f",
							Required: true,
						},
					},
					Action: handleTorrentShow,
				},
				{
					Name:  "create",
					Usage: "create new torrent file",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:     "file,f",
							Usage:    "include this file in torrent",
							Required: true,
						},
						cli.StringFlag{
							Name:     "out,o",
							Usage:    "save generated torrent to this `FILE`",
							Required: true,
						},
						cli.BoolFlag{
							Name:  "private,p",
							Usage: "create torrent for private trackers",
						},
						cli.UintFlag{
							Name:  "piece-length,l",
							Usage: "override default piece length in bytes",
						},
						cli.StringSliceFlag{
							Name:  "tracker,t",
							Usage: "add tracker `URL`",
						},
						cli.StringFlag{
							Name:  "comment,c",
							Usage: "add `COMMENT` to torrent",
						},
					},
					Action: handleTorrentCreate,
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

var idFlag = cli.StringFlag{
	Name:     "id",
	Required: true,
}

func handleServer(c *cli.Context) error {
	cfg, err := torrent.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	ses, err := torrent.New(*cfg)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := torrent.NewServer(ses)
	err = srv.Run(ctx)
	return errors.Join(err, ses.Close())
}

func handleBeforeClient(c *cli.Context) error {
	clt = rpcclient.New(c.String("url"))
	if timeout := c.Duration("timeout"); timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := clt.WaitReady(ctx); err != nil {
			return fmt.Errorf("server is not ready: %w", err)
		}
	}
	return nil
}

func handleAfterClient(c *cli.Context) error {
	if clt == nil {
		return nil
	}
	return clt.Close()
}

func handleList(c *cli.Context) error {
	resp, err := clt.ListTorrents()
	if err != nil {
		return err
	}
	b, err := prettyjson.Marshal(resp)
	if err != nil {
		return err
	}
	_, _ = os.Stdout.Write(b)
	_, _ = os.Stdout.WriteString("\n")
	return nil
}

func handleAdd(c *cli.Context) error {
	opt := &rpctypes.AddTorrentOptions{
		Stopped:           c.Bool("stopped"),
		StopAfterDownload: c.Bool("stop-after-download"),
		DownloadLimit:     c.Int64("download-limit"),
		UploadLimit:       c.Int64("upload-limit"),
	}
	var t *rpctypes.Torrent
	arg := c.String("torrent")
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "magnet:") {
		var err error
		t, err = clt.AddURI(arg, opt)
		if err != nil {
			return err
		}
	} else {
		f, err := os.Open(arg)
		if err != nil {
			return err
		}
		t, err = clt.AddTorrent(f, opt)
		f.Close()
		if err != nil {
			return err
		}
	}
	return printCompact(t)
}

func handleGet(c *cli.Context) error {
	t, err := clt.GetTorrent(c.String("id"))
	if err != nil {
		return err
	}
	return printCompact(t)
}

func handlePause(c *cli.Context) error {
	return clt.PauseTorrent(c.String("id"))
}

func handleResume(c *cli.Context) error {
	return clt.ResumeTorrent(c.String("id"))
}

func handleLimits(c *cli.Context) error {
	return clt.UpdateLimits(c.String("id"), c.Int64("download"), c.Int64("upload"))
}

func handleRemove(c *cli.Context) error {
	return clt.RemoveTorrent(c.String("id"))
}

func handleMagnet(c *cli.Context) error {
	magnet, err := clt.GetMagnet(c.String("id"))
	if err != nil {
		return err
	}
	fmt.Println(magnet)
	return nil
}

func handleSaveTorrent(c *cli.Context) error {
	b, err := clt.GetTorrentFile(c.String("id"))
	if err != nil {
		return err
	}
	return os.WriteFile(c.String("out"), b, 0600)
}

func handleStats(c *cli.Context) error {
	s, err := clt.GetStats()
	if err != nil {
		return err
	}
	return printCompact(s)
}

func handleSessionStats(c *cli.Context) error {
	s, err := clt.GetSessionStats()
	if err != nil {
		return err
	}
	return printCompact(s)
}

func handleGlobalLimits(c *cli.Context) error {
	down, up := c.Int64("download"), c.Int64("upload")
	if down >= 0 || up >= 0 {
		cur, err := clt.GetGlobalLimits()
		if err != nil {
			return err
		}
		if down < 0 {
			down = cur.DownloadLimit
		}
		if up < 0 {
			up = cur.UploadLimit
		}
		if err = clt.SetGlobalLimits(down, up); err != nil {
			return err
		}
	}
	limits, err := clt.GetGlobalLimits()
	if err != nil {
		return err
	}
	return printCompact(limits)
}

func handleConsole(c *cli.Context) error {
	con := console.New(clt)
	return con.Run()
}

type torrentInfo struct {
	Name        string   `json:"name"`
	InfoHash    string   `json:"info_hash"`
	Size        int64    `json:"size"`
	PieceLength uint32   `json:"piece_length"`
	NumPieces   uint32   `json:"num_pieces"`
	Private     bool     `json:"private"`
	Files       int      `json:"files"`
	Trackers    []string `json:"trackers"`
	Comment     string   `json:"comment"`
	CreatedBy   string   `json:"created_by"`
	CreatedAt   string   `json:"created_at"`
}

func handleTorrentShow(c *cli.Context) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()
	mi, err := metainfo.New(f, bencode.DefaultLimits)
	if err != nil {
		return err
	}
	info := torrentInfo{
		Name:        mi.Info.Name,
		InfoHash:    mi.Info.HashString(),
		Size:        mi.Info.TotalLength,
		PieceLength: mi.Info.PieceLength,
		NumPieces:   mi.Info.NumPieces,
		Private:     mi.Info.IsPrivate(),
		Files:       len(mi.Info.GetFiles()),
		Trackers:    mi.Trackers(),
		Comment:     mi.Comment,
		CreatedBy:   mi.CreatedBy,
	}
	if !mi.CreationDate.IsZero() {
		info.CreatedAt = mi.CreationDate.Format(time.RFC3339)
	}
	return printCompact(info)
}

func handleTorrentCreate(c *cli.Context) error {
	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New("directories are not supported")
	}
	info, err := metainfo.NewInfoBytes(filepath.Base(path), f, fi.Size(), uint32(c.Uint("piece-length")), c.Bool("private"))
	if err != nil {
		return err
	}
	var trackers [][]string
	for _, t := range c.StringSlice("tracker") {
		trackers = append(trackers, []string{t})
	}
	b, err := metainfo.Encode(info, trackers, c.String("comment"))
	if err != nil {
		return err
	}
	return os.WriteFile(c.String("out"), b, 0640)
}

func printCompact(v interface{}) error {
	b, err := jsonutil.MarshalCompactPretty(v)
	if err != nil {
		return err
	}
	_, _ = os.Stdout.Write(b)
	return nil
}
