package engine

import (
	"context"

	"github.com/ivlev/svg2video/internal/analyzer"
	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/progress"
	"github.com/ivlev/svg2video/internal/source"
	"github.com/ivlev/svg2video/internal/video"
)

// Capture parses data and records it into a clip. A *source.ParseError is
// returned before any frame is drawn.
func Capture(ctx context.Context, data []byte, anim config.Animation, opts ...Option) (*video.Clip, error) {
	set := buildSettings(opts)
	rep := progress.NewMonotonic(set.reporter)

	rep.Report(progress.Update{Percent: progress.CanvasPercent, Stage: progress.StageCanvas})

	parser := &source.Parser{Logger: set.logger}
	doc, err := parser.Parse(data)
	if err != nil {
		set.logger.Error("capture failed", "stage", progress.StageParsing, "err", err)
		return nil, err
	}
	rep.Report(progress.Update{Percent: progress.ParsePercent, Stage: progress.StageParsing})

	for _, f := range analyzer.NewContrastChecker().Check(doc, anim.Background) {
		set.logger.Warn("stroke barely visible on background",
			"index", f.Index, "tag", f.Tag, "distance", f.Distance)
	}

	opts = append(opts[:len(opts):len(opts)], WithReporter(rep))
	return NewSession(doc, anim, opts...).Run(ctx)
}
