package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blackmann/home-archive-2022-01/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Override the output directory"`
	Clean  bool   `help:"Remove the output directory before writing"`

	out io.Writer
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config, Overrides{Output: b.Output, Clean: b.Clean})
	if err != nil {
		return err
	}
	builder := build.New(cfg, build.WithLogger(g.logger()))
	defer func() { _ = builder.Close() }()

	report, err := builder.Run(g.ctx())
	if err != nil {
		return err
	}
	printSummary(b.writer(), report)
	return nil
}

func (b *BuildCmd) writer() io.Writer {
	if b.out != nil {
		return b.out
	}
	return os.Stdout
}

func printSummary(w io.Writer, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Built %d pages (%d posts, %d experiments), %d styles compiled, %d assets copied in %s\n",
		r.PagesWritten, r.Posts, r.Experiments, r.StylesCompiled, r.AssetsCopied+r.ExperimentAssets,
		r.Duration().Round(time.Millisecond))
}
