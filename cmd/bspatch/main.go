// Command bspatch applies a binary patch to an old file, producing the new
// file. Errors go to stderr and the exit code is the engine's numeric error
// code; a partially written new file is removed on failure.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bspatch"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
)

func main() {
	logger := log.New(os.Stderr, "bspatch: ", 0)

	app := &cli.App{
		Name:      "bspatch",
		Usage:     "apply a binary patch to oldfile, producing newfile",
		ArgsUsage: "oldfile newfile patchfile",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "codec",
				Value: "bzip2",
				Usage: "entropy coder the patch's three sections were written with (bzip2, lz4)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return cli.Exit("usage: bspatch oldfile newfile patchfile", int(bserr.InvalidArg))
			}
			oldfile, newfile, patchfile := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

			codec, err := resolveCodec(c.String("codec"))
			if err != nil {
				return cli.Exit(err.Error(), int(bserr.InvalidArg))
			}

			if err := run(logger, oldfile, newfile, patchfile, codec); err != nil {
				logger.Println(err)
				return cli.Exit(err.Error(), int(bserr.CodeOf(err)))
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
	oldBuf, err := readAll(oldStream)
	if err != nil {
		return err
	}

	patchStream, err := bsstream.OpenFileStream(patchfile, bsstream.ModeRead)
	if err != nil {
		return fmt.Errorf("can't open patchfile %q: %w", patchfile, err)
	}
	defer patchStream.Close()

	newStream, err := bsstream.OpenFileStream(newfile, bsstream.ModeWrite)
	if err != nil {
		return fmt.Errorf("can't create newfile %q: %w", newfile, err)
	}
	defer newStream.Close()

	ctx := &bserr.Ctx{
		LogError: func(_ interface{}, msg string) { logger.Println(msg) },
	}
	e := &bspatch.PatchEngine{Ctx: ctx, Codec: codec}
	if err := e.Run(oldBuf, patchStream, newStream); err != nil {
		os.Remove(newfile)
		return err
	}
	return nil
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
