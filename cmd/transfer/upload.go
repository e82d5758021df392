package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/docker/go-units"
	"github.com/urfave/cli/v2"

	"github.com/sir_venger/resumable_lite/pkg/transferclient"
)

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a file, resuming from what the server already stored",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "chunk-size", Usage: "Chunk size, e.g. 1MiB", Value: "1MiB"},
			&cli.StringFlag{Name: "name", Usage: "Artifact name on the server (default: file base name)"},
			&cli.StringFlag{Name: "session", Usage: "Resume under this session id (default: the one saved by the previous run)"},
			&cli.StringFlag{Name: "state", Usage: "File with session ids of unfinished uploads", Value: defaultSessionBookPath()},
		},
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("upload needs exactly one file", 2)
	}
	path := c.Args().First()
	name := c.String("name")
	if name == "" {
		name = filepath.Base(path)
	}

	client, err := newClient(c, c.String("chunk-size"))
	if err != nil {
		return err
	}

	src, err := transferclient.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	book, err := loadSessionBook(c.String("state"))
	if err != nil {
		return err
	}
	server := c.String(serverFlag.Name)
	id := c.String("session")
	if id == "" {
		id = book.Get(server, name)
	}

	sess := client.NewSession(name, src, transferclient.WithSessionID(id))
	// id сохраняется до первого PUT: если процесс упадёт, следующий запуск продолжит под той же арендой
	if err = book.Put(server, name, sess.ID()); err != nil {
		return err
	}
	bar := transferclient.NewProgressBar(os.Stdout, "upload "+name, src.Size())
	sess.OnProgress = bar.Update

	// Ctrl+C ставит загрузку на паузу: подтверждённые чанки остаются на сервере.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer close(sig)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			sess.Pause()
		}
	}()

	st, err := sess.Start(context.Background())
	switch st {
	case transferclient.StateCompleted:
		bar.Finish()
		return book.Forget(server, name)
	case transferclient.StatePaused:
		p := sess.Progress()
		bar.Fail(fmt.Errorf("paused at %s, run again to resume", units.BytesSize(float64(p.Uploaded))))
		return nil
	default:
		bar.Fail(err)
		return err
	}
}
