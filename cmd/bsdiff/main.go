// Command bsdiff generates a binary patch from an old file to a new file.
// It wires file streams, a codec choice, and an optional control-entry
// report around the diff engine; errors go to stderr and the exit code is
// the engine's numeric error code.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bsdiff"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
	"github.com/binarydelta/bsdiff/pkg/report"
)

func main() {
	logger := log.New(os.Stderr, "bsdiff: ", 0)

	app := &cli.App{
		Name:      "bsdiff",
		Usage:     "generate a binary patch from oldfile to newfile",
		ArgsUsage: "oldfile newfile patchfile",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "codec",
				Value: "bzip2",
				Usage: "entropy coder for the three patch sections (bzip2, lz4); lz4 produces a non-standard container",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "write a CSV dump of the patch's control entries to this path",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return cli.Exit("usage: bsdiff oldfile newfile patchfile", bserrExitCode(bserr.InvalidArg))
			}
			oldfile, newfile, patchfile := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

			codec, err := resolveCodec(c.String("codec"))
			if err != nil {
				return cli.Exit(err.Error(), bserrExitCode(bserr.InvalidArg))
			}

			if err := run(logger, oldfile, newfile, patchfile, codec); err != nil {
				logger.Println(err)
				return cli.Exit(err.Error(), bserrExitCode(bserr.CodeOf(err)))
			}

			if reportPath := c.String("report"); reportPath != "" {
				if err := writeReport(patchfile, codec, reportPath); err != nil {
					logger.Println(err)
					return cli.Exit(err.Error(), bserrExitCode(bserr.CodeOf(err)))
				}
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("fatal error: %s", err.Error())
	}
}

func run(logger *log.Logger, oldfile, newfile, patchfile string, codec bscodec.Factory) error {
	oldStream, err := bsstream.OpenFileStream(oldfile, bsstream.ModeRead)
	if err != nil {
		return fmt.Errorf("can't open oldfile %q: %w", oldfile, err)
	}
	defer oldStream.Close()

	newStream, err := bsstream.OpenFileStream(newfile, bsstream.ModeRead)
	if err != nil {
		return fmt.Errorf("can't open newfile %q: %w", newfile, err)
	}
	defer newStream.Close()

	oldBuf, err := readAll(oldStream)
	if err != nil {
		return err
	}
	newBuf, err := readAll(newStream)
	if err != nil {
		return err
	}

	patchStream, err := bsstream.OpenFileStream(patchfile, bsstream.ModeWrite)
	if err != nil {
		return fmt.Errorf("can't create patchfile %q: %w", patchfile, err)
	}
	defer patchStream.Close()

	ctx := &bserr.Ctx{
		LogError: func(_ interface{}, msg string) { logger.Println(msg) },
	}
	e := &bsdiff.DiffEngine{Ctx: ctx, Codec: codec}
	return e.Run(oldBuf, newBuf, patchStream)
}

func writeReport(patchfile string, codec bscodec.Factory, reportPath string) error {
	patchStream, err := bsstream.OpenFileStream(patchfile, bsstream.ModeRead)
	if err != nil {
		return fmt.Errorf("can't reopen patchfile %q for report: %w", patchfile, err)
	}
	defer patchStream.Close()

	out, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("can't create report %q: %w", reportPath, err)
	}
	defer out.Close()

	return report.WriteCSV(patchStream, codec, out)
}

func resolveCodec(name string) (bscodec.Factory, error) {
	switch name {
	case "bzip2", "":
		return bscodec.Bzip2, nil
	case "lz4":
		return bscodec.LZ4, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

func readAll(r bsstream.Reader) ([]byte, error) {
	size, err := r.Seek(0, bsstream.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, bsstream.SeekSet); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	off := 0
	for off < len(buf) {
		n, err := r.Read(buf[off:])
		off += n
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func bserrExitCode(code bserr.Code) int {
	return int(code)
}
