package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"bqtools/internal/appcore"
	"bqtools/internal/cliutil"
	"bqtools/internal/container"
)

// Cat concatenates containers with identical layouts into output ("-" or
// "" is stdout). Blocks are copied without re-encoding.
func Cat(ctx context.Context, inputs []string, output string, stdout io.Writer) (uint64, error) {
	if len(inputs) == 0 {
		return 0, appcore.Usagef("cat needs at least one input")
	}
	var dst io.Writer = stdout
	if !cliutil.IsStdin(output) {
		f, err := os.Create(output)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		dst = f
	} else if dst == nil {
		dst = os.Stdout
	}
	bw := bufio.NewWriterSize(dst, 1<<20)
	n, err := container.Concat(bw, inputs)
	if err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("write %s: %w", output, err)
	}
	if f, ok := dst.(*os.File); ok && f != os.Stdout {
		if err := f.Close(); err != nil {
			return 0, err
		}
	}
	log.FromContext(ctx).Info("concatenated", "inputs", len(inputs), "records", n)
	return n, nil
}
