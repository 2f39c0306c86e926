package app

import (
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signassess/internal/detector"
	"github.com/ayusman/signassess/internal/overlay"
	"github.com/ayusman/signassess/internal/summary"
)

// runPipeline reads frames at the camera rate until stopCh closes.
//
// Per frame:
// 1. Read a frame from the camera
// 2. Recognize gestures
// 3. Label hands the recognizer left uncategorized with the template classifier
// 4. Draw the hands and keep the JPEG for the stream
// 5. Update live output, the session buffer and the quiz
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = 15
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.processFrame()
		}
	}
}

func (a *App) processFrame() {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.log.WithError(err).Debug("error reading frame")
		return
	}
	defer frame.Close()

	result, err := a.recognizer.Recognize(frame, a.clock())
	if err != nil {
		a.log.WithError(err).Warn("error recognizing gestures")
		return
	}

	a.classifier.Label(result)

	overlay.Draw(frame, result.Hands, a.style)
	if buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame); err == nil {
		jpeg := append([]byte(nil), buf.GetBytes()...)
		buf.Close()
		a.mu.Lock()
		a.frame = jpeg
		a.mu.Unlock()
	}

	a.Observe(result)
}

// Observe applies one recognition result. A recognized gesture becomes the
// live output, is buffered for the session summary and answers the quiz.
// Without a gesture the live output is cleared.
func (a *App) Observe(result *detector.Result) {
	now := a.clock()
	top, ok := result.Top()
	if ok && top.Name != "" {
		a.quiz.Observe(top.Name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := Output{
		Active:    a.current != nil,
		Timestamp: now,
		Quiz:      a.quiz.State(),
	}
	if a.current != nil {
		out.SessionID = a.current.ID
	}
	if result != nil {
		out.Hands = result.Hands
	}

	if ok && top.Name != "" {
		out.Gesture = top.Name
		out.Progress = int(math.Round(top.Score * 100))

		if a.current != nil {
			confidence := top.Score
			a.recorder.Append(summary.FrameDetection{Label: top.Name, Confidence: &confidence})
		}
	}

	a.output = out
}
