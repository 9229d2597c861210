package annotator

import (
	"context"

	"github.com/nvr-ai/go-annotate/video"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// markedFrame is a frame that has been through detect and draw.
type markedFrame struct {
	mat   gocv.Mat
	marks int
}

// runPipelined overlaps decoding, detect+draw and encoding. Each stage owns
// the frames it has received until it hands them on or closes them. Frames
// still queued when a stage fails are closed once every stage has stopped.
func (a *Annotator) runPipelined(src video.Source, sink video.Sink, report *Report) error {
	g, ctx := errgroup.WithContext(context.Background())

	decoded := make(chan gocv.Mat, a.queueSize)
	marked := make(chan markedFrame, a.queueSize)

	g.Go(func() error {
		defer close(decoded)
		for ctx.Err() == nil {
			frame := gocv.NewMat()
			stop := a.prof.StartOperation(OpDecode)
			ok := src.Read(&frame)
			stop()
			if !ok {
				frame.Close()
				return nil
			}
			select {
			case decoded <- frame:
			case <-ctx.Done():
				frame.Close()
			}
		}
		return ctx.Err()
	})

	g.Go(func() error {
		defer close(marked)
		for frame := range decoded {
			if err := ctx.Err(); err != nil {
				frame.Close()
				return err
			}
			marks, err := a.annotateFrame(&frame)
			if err != nil {
				frame.Close()
				return err
			}
			select {
			case marked <- markedFrame{mat: frame, marks: marks}:
			case <-ctx.Done():
				frame.Close()
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for f := range marked {
			if err := ctx.Err(); err != nil {
				f.mat.Close()
				return err
			}
			err := a.writeFrame(sink, f.mat, report.OutputPath)
			f.mat.Close()
			if err != nil {
				return err
			}
			report.add(f.marks)
		}
		return nil
	})

	// errgroup keeps the first error, so the failing stage's error is
	// returned rather than the context.Canceled of the stages it stopped.
	err := g.Wait()
	for m := range decoded {
		m.Close()
	}
	for f := range marked {
		f.mat.Close()
	}
	return err
}
