package rpq

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/fatih/color"
)

type Logger interface {
	LogMessage(msg string)
	LogStageStart(name string, in any)
	LogStageComplete(success bool, elapsed time.Duration, name string, out any)
	LogStageError(err error)
}

// DefaultLogger prints one colored line per stage to the standard logger.
type DefaultLogger struct{}

func (l DefaultLogger) LogMessage(msg string) {
	log.Print(msg)
}

func (l DefaultLogger) LogStageStart(name string, in any) {
	// Ignore
}

func (l DefaultLogger) LogStageComplete(success bool, elapsed time.Duration, name string, out any) {

	// Column 1: Success or failure
	lbl := color.New(color.FgWhite).Add(color.BgGreen).Sprintf(" OK  ")
	if !success {
		lbl = color.New(color.FgWhite).Add(color.BgRed).Sprintf(" ERR ")
	}

	// Column 2: Time elapsed
	tclr := color.New(color.FgWhite, color.Faint)
	if elapsed > time.Millisecond {
		tclr = color.New(color.FgWhite).Add(color.BgCyan)
	}
	t := tclr.Sprintf("%13v", elapsed)

	// Column 3: Stage name
	log.Print("|" + lbl + "| " + t + " | " + name)
}

func (l DefaultLogger) LogStageError(err error) {
	log.Printf("")
	log.Printf("Error: %s", err)
	log.Printf("")
}

// SlogLogger writes stage events as structured records.
type SlogLogger struct {
	L *slog.Logger
}

func (l SlogLogger) logger() *slog.Logger {
	if l.L == nil {
		return slog.Default()
	}
	return l.L
}

func (l SlogLogger) LogMessage(msg string) {
	l.logger().Debug(msg)
}

func (l SlogLogger) LogStageStart(name string, in any) {
	l.logger().Debug("stage started", "stage", name)
}

func (l SlogLogger) LogStageComplete(success bool, elapsed time.Duration, name string, out any) {
	l.logger().Info("stage completed", "stage", name, "success", success, "elapsed", elapsed)
}

func (l SlogLogger) LogStageError(err error) {
	l.logger().Warn("stage failed", "kind", KindOf(err).String(), "error", err)
}

// Execute runs the chain's stages in order, passing each stage's output to the next one, and returns the
// output of the last stage. The first failing stage stops the chain and its error is returned unchanged.
func Execute[D any](ctx context.Context, ch *Chain[D], q Query[D], lgr Logger) (any, error) {

	if lgr != nil {
		lgr.LogMessage("Starting execution chain...")
	}

	return execute(ctx, ch, q, nil, lgr)
}

func execute[D any](ctx context.Context, ch *Chain[D], q Query[D], in any, lgr Logger) (any, error) {

	d := in // Data passed between successive stages

	for s := ch.First; s != nil; s = s.n {

		if lgr != nil {
			lgr.LogStageStart(s.Name, d)
		}

		t := time.Now()

		out, err := s.New(q).Execute(ctx, d)

		if lgr != nil {
			lgr.LogStageComplete(err == nil, time.Since(t), s.Name, out)
			if err != nil {
				lgr.LogStageError(err)
			}
		}

		if err != nil {
			return nil, err
		}

		d = out
	}

	return d, nil
}
