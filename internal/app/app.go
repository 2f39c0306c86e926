// Package app runs live sign assessment sessions: it drives the camera and
// recognizer, keeps the live output and quiz current, and turns finished
// sessions into persisted summary records.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/signassess/internal/capture"
	"github.com/ayusman/signassess/internal/detector"
	"github.com/ayusman/signassess/internal/gesture"
	"github.com/ayusman/signassess/internal/logging"
	"github.com/ayusman/signassess/internal/overlay"
	"github.com/ayusman/signassess/internal/quiz"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/sink"
	"github.com/ayusman/signassess/internal/store"
	"github.com/ayusman/signassess/internal/summary"
)

var (
	// ErrSessionActive is returned when starting a session while one is running.
	ErrSessionActive = errors.New("a session is already running")
	// ErrNoSession is returned when stopping without a running session.
	ErrNoSession = errors.New("no session is running")
	// ErrNotOwner is returned when a user stops a session started by someone else.
	ErrNotOwner = errors.New("session belongs to another user")
)

// saveTimeout bounds persisting a finished session.
const saveTimeout = 10 * time.Second

// Config holds the collaborators of an App. Nil fields get defaults.
type Config struct {
	Store      *store.Store
	Camera     capture.Camera
	Recognizer detector.Recognizer
	Classifier *gesture.Classifier
	QuizSet    quiz.Set
	TopN       int
	Sink       sink.Sink
	Style      *overlay.Style
	Logger     logrus.FieldLogger
	Clock      func() time.Time
}

// Output is the live state pushed to the page while a session runs.
type Output struct {
	Active    bool                     `json:"active"`
	SessionID string                   `json:"session_id,omitempty"`
	Gesture   string                   `json:"gesture"`
	Progress  int                      `json:"progress"`
	Hands     []detector.HandLandmarks `json:"hands"`
	Timestamp time.Time                `json:"timestamp"`
	Quiz      quiz.State               `json:"quiz"`
}

// App is the live assessment orchestrator.
type App struct {
	config     Config
	log        logrus.FieldLogger
	camera     capture.Camera
	recognizer detector.Recognizer
	classifier *gesture.Classifier
	quiz       *quiz.Quiz
	style      overlay.Style
	clock      func() time.Time

	// lifecycle serializes StartSession and StopSession.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	current  *session.Context
	recorder *session.Recorder
	stopCh   chan struct{}
	done     chan struct{}
	output   Output
	frame    []byte
	last     *session.Record
}

// New creates an App. When no recognizer is configured the MediaPipe
// backend is tried first, falling back to a MockRecognizer.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.TopN <= 0 {
		config.TopN = summary.DefaultTopN
	}
	if len(config.QuizSet.Signs) == 0 {
		config.QuizSet = quiz.DefaultSet()
	}
	if config.Camera == nil {
		config.Camera = capture.NewCamera(capture.DefaultConfig())
	}
	if config.Classifier == nil {
		config.Classifier = gesture.NewClassifier()
	}

	style := overlay.DefaultStyle()
	if config.Style != nil {
		style = *config.Style
	}

	a := &App{
		config:     config,
		log:        config.Logger,
		camera:     config.Camera,
		recognizer: config.Recognizer,
		classifier: config.Classifier,
		quiz:       quiz.New(config.QuizSet),
		style:      style,
		clock:      config.Clock,
		recorder:   session.NewRecorder(),
	}

	if a.recognizer == nil {
		if mp, err := detector.NewMediaPipeRecognizer(detector.DefaultConfig()); err == nil {
			a.recognizer = mp
			a.log.Info("using MediaPipe gesture recognizer")
		} else {
			a.log.WithError(err).Warn("MediaPipe not available, using mock recognizer")
			a.recognizer = detector.NewMockRecognizer()
		}
	}

	a.output = Output{Quiz: a.quiz.State()}
	return a
}

// StartSession opens the camera and starts the frame loop for identity.
func (a *App) StartSession(identity session.Identity) (*session.Context, error) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.RLock()
	running := a.current != nil
	a.mu.RUnlock()
	if running {
		return nil, ErrSessionActive
	}

	if err := a.camera.Open(); err != nil {
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}

	sc := session.Start(identity, a.clock())
	stopCh := make(chan struct{})
	done := make(chan struct{})

	a.mu.Lock()
	a.current = sc
	a.recorder = session.NewRecorder()
	a.stopCh = stopCh
	a.done = done
	a.output = Output{
		Active:    true,
		SessionID: sc.ID,
		Timestamp: sc.StartedAt,
		Quiz:      a.quiz.Reset(),
	}
	a.mu.Unlock()

	go a.runPipeline(stopCh, done)

	a.log.WithFields(logrus.Fields{
		"session_id": sc.ID,
		"user":       identity.Name,
		"guest":      identity.IsGuest(),
	}).Info("session started")
	return sc, nil
}

// StopSession ends the running session and summarizes it. Records of
// authenticated users are handed to the sink; saved reports whether that
// happened. A sink failure still returns the record.
//
// The record is persisted even if ctx is cancelled once the session has
// been stopped; only ctx values carry over to the sink.
func (a *App) StopSession(ctx context.Context) (rec *session.Record, saved bool, err error) {
	return a.stop(ctx, nil)
}

// StopSessionFor is StopSession for a caller. A session started by a user
// can only be stopped by that user; guest sessions can be stopped by anyone.
func (a *App) StopSessionFor(ctx context.Context, identity session.Identity) (*session.Record, bool, error) {
	return a.stop(ctx, &identity)
}

func (a *App) stop(ctx context.Context, caller *session.Identity) (rec *session.Record, saved bool, err error) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	sc, recorder := a.current, a.recorder
	stopCh, done := a.stopCh, a.done
	a.mu.Unlock()
	if sc == nil {
		return nil, false, ErrNoSession
	}
	if caller != nil && !sc.Identity.IsGuest() && sc.Identity.UserID != caller.UserID {
		return nil, false, ErrNotOwner
	}

	close(stopCh)
	<-done

	if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("error closing camera")
	}

	marks, total := a.quiz.Score()
	end := a.clock()
	rec, err = session.Finish(sc, recorder.Drain(), a.config.TopN, end, session.Score{Marks: marks, Questions: total})

	a.mu.Lock()
	a.current = nil
	a.stopCh = nil
	a.done = nil
	a.frame = nil
	a.output = Output{Timestamp: end, Quiz: a.quiz.State()}
	if rec != nil {
		a.last = rec
	}
	a.mu.Unlock()

	if err != nil {
		return nil, false, fmt.Errorf("failed to summarize session: %w", err)
	}

	entry := a.log.WithFields(logrus.Fields{
		"session_id": rec.ID,
		"seconds":    rec.SecondsSpent,
		"signs":      len(rec.TopSigns),
		"score":      rec.Score,
	})

	if sc.Identity.IsGuest() || a.config.Sink == nil {
		entry.Info("session finished")
		return rec, false, nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := a.config.Sink.Save(saveCtx, rec); err != nil {
		entry.WithError(err).Error("failed to save session")
		return rec, false, fmt.Errorf("failed to save session: %w", err)
	}

	entry.Info("session finished and saved")
	return rec, true, nil
}

// Close stops any running session and releases the recognizer.
func (a *App) Close() error {
	if _, _, err := a.StopSession(context.Background()); err != nil && !errors.Is(err, ErrNoSession) {
		a.log.WithError(err).Warn("error stopping session on close")
	}
	return a.recognizer.Close()
}

// Current returns the running session, or nil.
func (a *App) Current() *session.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// LastRecord returns the record of the most recently finished session, or nil.
func (a *App) LastRecord() *session.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Snapshot returns the live output.
func (a *App) Snapshot() Output {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.output
}

// Frame returns the latest overlaid frame as JPEG, or nil when idle.
func (a *App) Frame() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame
}

// Quiz returns the quiz state.
func (a *App) Quiz() quiz.State {
	return a.quiz.State()
}

// NextQuestion scores the current question and advances the quiz.
func (a *App) NextQuestion() (quiz.State, error) {
	st, err := a.quiz.Next()
	a.setQuiz(st)
	return st, err
}

// ResetQuiz starts the quiz over.
func (a *App) ResetQuiz() quiz.State {
	st := a.quiz.Reset()
	a.setQuiz(st)
	return st
}

func (a *App) setQuiz(st quiz.State) {
	now := a.clock()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output.Quiz = st
	a.output.Timestamp = now
}

// LoadSigns loads the trained sign templates from the store into the classifier.
func (a *App) LoadSigns() error {
	if a.config.Store == nil {
		return nil
	}

	signs, err := a.config.Store.Signs().List()
	if err != nil {
		return err
	}

	templates := make([]*gesture.Template, 0, len(signs))
	for _, sg := range signs {
		landmarks, err := a.config.Store.Signs().GetLandmarks(sg.ID)
		if err != nil {
			a.log.WithError(err).WithField("sign", sg.Name).Warn("failed to load landmarks")
			continue
		}
		if len(landmarks) == 0 {
			continue
		}
		templates = append(templates, &gesture.Template{
			ID:        sg.ID,
			Label:     sg.Name,
			Landmarks: storeLandmarksToDetector(landmarks),
			Tolerance: sg.Tolerance,
		})
	}

	a.classifier.Replace(templates)
	a.log.WithField("templates", len(templates)).Info("loaded sign templates")
	return nil
}

// CreateSign registers a new, untrained sign.
func (a *App) CreateSign(name string, tolerance float64) (*store.Sign, error) {
	if a.config.Store == nil {
		return nil, errors.New("no store configured")
	}
	if tolerance <= 0 {
		tolerance = gesture.DefaultTolerance
	}
	sg := &store.Sign{ID: uuid.NewString(), Name: name, Tolerance: tolerance}
	if err := a.config.Store.Signs().Create(sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// TrainSign records samples for a sign, retrains its template from every
// recorded sample and reloads the classifier. It returns the sample count.
func (a *App) TrainSign(signID string, samples []json.RawMessage) (int, error) {
	if a.config.Store == nil {
		return 0, errors.New("no store configured")
	}
	if _, err := gesture.Train(samples); err != nil {
		return 0, err
	}

	signs := a.config.Store.Signs()
	total, err := signs.AddSamples(signID, samples)
	if err != nil {
		return 0, err
	}

	all, err := signs.GetSamples(signID)
	if err != nil {
		return 0, err
	}
	avg, err := gesture.Train(all)
	if err != nil {
		return 0, err
	}

	landmarks := make([]store.Landmark, len(avg))
	for i, p := range avg {
		landmarks[i] = store.Landmark{Index: i, X: p.X, Y: p.Y, Z: p.Z}
	}
	if err := signs.SetLandmarks(signID, landmarks); err != nil {
		return 0, err
	}

	return total, a.LoadSigns()
}

// DeleteSign removes a sign and reloads the classifier.
func (a *App) DeleteSign(signID string) error {
	if a.config.Store == nil {
		return errors.New("no store configured")
	}
	if err := a.config.Store.Signs().Delete(signID); err != nil {
		return err
	}
	a.classifier.Remove(signID)
	return nil
}

// storeLandmarksToDetector converts stored landmarks to detector points.
func storeLandmarksToDetector(landmarks []store.Landmark) []detector.Point3D {
	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return points
}

// Classifier returns the template classifier.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier
}

// Recognizer returns the gesture recognizer.
func (a *App) Recognizer() detector.Recognizer {
	return a.recognizer
}
