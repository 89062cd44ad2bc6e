package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cliffjones/polli/internal/logging"
	"github.com/cliffjones/polli/internal/talkmap"
)

// #region collaborators
// Transport shows the system's line and returns the user's next line.
// io.EOF means the user is gone.
type Transport interface {
	Exchange(ctx context.Context, say string) (string, error)
}

// Saver persists the talk maps at the end of a session.
type Saver interface {
	SaveAll(ctx context.Context, maps talkmap.Maps) error
}

// Recorder receives every completed exchange.
type Recorder interface {
	Record(ctx context.Context, entry logging.TurnEntry) error
}

// #endregion collaborators

// #region loop
// Loop drives one interactive session.
type Loop struct {
	Engine    *Engine
	Transport Transport
	Saver     Saver
	Recorder  Recorder // optional
	Logger    *slog.Logger
}

// Run converses until the user enters an empty line, the transport hits EOF,
// or ctx is cancelled, then saves exactly once. A transport failure still
// saves before its error is returned.
func (l *Loop) Run(ctx context.Context) (Session, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := l.Engine.NewSession()
	logger.Debug("session started", "session_id", s.ID, "levels", s.Levels(), "seeding", l.Engine.Maps().Empty())

	runErr := l.converse(ctx, logger, &s)
	s.State = Terminated

	// The session may have ended through cancellation; the save still has to land.
	if err := l.Saver.SaveAll(context.WithoutCancel(ctx), l.Engine.Maps()); err != nil {
		return s, errors.Join(runErr, fmt.Errorf("save: %w", err))
	}
	logger.Debug("session saved", "session_id", s.ID, "turns", s.Turn)
	return s, runErr
}

func (l *Loop) converse(ctx context.Context, logger *slog.Logger, s *Session) error {
	for s.State != Terminated {
		if err := ctx.Err(); err != nil {
			logger.Debug("session cancelled", "session_id", s.ID, "err", err)
			return nil
		}

		next, reply, err := l.Engine.Respond(*s)
		if err != nil {
			return err
		}
		*s = next
		if reply.Match.Fallback {
			logger.Debug("unknown context, random key", "session_id", s.ID, "key", reply.Match.Key)
		}

		line, err := l.Transport.Exchange(ctx, reply.Text)
		if errors.Is(err, io.EOF) {
			line, err = "", nil
		}
		if err != nil && ctx.Err() != nil {
			logger.Debug("session cancelled", "session_id", s.ID, "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("exchange: %w", err)
		}

		next, err = l.Engine.Hear(*s, line)
		if err != nil {
			return err
		}
		*s = next
		if s.State == Terminated {
			return nil
		}

		l.record(ctx, logger, *s, reply, line)
	}
	return nil
}

func (l *Loop) record(ctx context.Context, logger *slog.Logger, s Session, reply Reply, line string) {
	if l.Recorder == nil {
		return
	}
	entry := logging.TurnEntry{
		SessionID:  s.ID,
		Turn:       s.Turn,
		Response:   reply.Text,
		Reply:      line,
		Seeding:    reply.Seeding,
		MatchDepth: reply.Match.Depth,
		ContextKey: reply.Match.Key,
		Fallback:   reply.Match.Fallback,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.Recorder.Record(ctx, entry); err != nil {
		logger.Warn("turn log write failed", "session_id", s.ID, "turn", s.Turn, "err", err)
	}
}

// #endregion loop
