// Command transfer загружает файлы на сервер возобновляемой загрузки и скачивает их обратно.
//
// Usage:
//
//	transfer upload ./big.iso
//	transfer status big.iso
//	transfer download big.iso --out ./copy.iso --connections 4
//	transfer download big.iso --range 0-1023 --out ./head.bin
package main

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/logger"
	"github.com/sir_venger/resumable_lite/pkg/transferclient"
)

var (
	serverFlag = &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Server base URL",
		EnvVars: []string{"TRANSFER_SERVER"},
		Value:   "http://localhost:8080",
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log requests and retries to stderr",
	}
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "transfer",
		Usage: "Resumable chunked file transfer over HTTP",
		Flags: []cli.Flag{serverFlag, verboseFlag},
		Commands: []*cli.Command{
			uploadCommand(),
			statusCommand(),
			downloadCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "transfer:", err)
		os.Exit(1)
	}
}

// newClient собирает клиента из глобальных флагов.
func newClient(c *cli.Context, chunkSize string) (*transferclient.Client, error) {
	lg := zap.NewNop()
	if c.Bool(verboseFlag.Name) {
		var err error
		if lg, err = logger.New("debug"); err != nil {
			return nil, err
		}
	}

	opts := []transferclient.Option{transferclient.WithLogger(lg)}
	if chunkSize != "" {
		n, err := units.RAMInBytes(chunkSize)
		if err != nil {
			return nil, fmt.Errorf("--chunk-size: %w", err)
		}
		opts = append(opts, transferclient.WithChunkSize(n))
	}

	return transferclient.New(c.String(serverFlag.Name), opts...), nil
}
