package hook

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signassess/internal/logging"
	"github.com/ayusman/signassess/internal/session"
)

// Sink hands finished session records to every subscribed hook.
type Sink struct {
	manager  *Manager
	executor *Executor
	log      logrus.FieldLogger
}

// NewSink creates a Sink over the hooks known to manager.
func NewSink(manager *Manager, executor *Executor, log logrus.FieldLogger) *Sink {
	if log == nil {
		log = logging.Discard()
	}
	return &Sink{manager: manager, executor: executor, log: log}
}

// Save runs each hook subscribed to EventSessionFinished. All hooks run;
// failures are joined.
func (s *Sink) Save(ctx context.Context, rec *session.Record) error {
	var errs []error
	for _, h := range s.manager.List() {
		if !h.Manifest.Handles(EventSessionFinished) {
			continue
		}

		resp, err := s.executor.Execute(ctx, h, &Request{
			Event:   EventSessionFinished,
			Session: rec,
			Config:  h.Manifest.Config,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("hook %s: %s", h.Manifest.Name, resp.Error))
			continue
		}

		s.log.WithFields(logrus.Fields{
			"hook":       h.Manifest.Name,
			"session_id": rec.ID,
		}).Debug("hook completed")
	}
	return errors.Join(errs...)
}
