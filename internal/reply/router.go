package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/digest"
	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/score"
	"github.com/ppiankov/grantscout/internal/store"
)

// Store is the part of the result store the router reads and writes
type Store interface {
	FetchResultByID(ctx context.Context, id int64) (model.StoredResult, error)
	FetchPivotSuggestions(ctx context.Context, projectID string, limit int) ([]model.PivotSuggestion, error)
	RecordAction(ctx context.Context, rec model.ActionRecord)
}

// Engine drafts text for draft and pivot actions
type Engine interface {
	DraftApplication(ctx context.Context, project model.Project, result model.SearchResult) (string, error)
	SuggestPivots(ctx context.Context, project model.Project, results []model.SearchResult) ([]string, error)
}

// Deepener runs follow-up searches around one stored result and returns the newly stored batch
type Deepener interface {
	Deepen(ctx context.Context, project model.Project, result model.StoredResult) ([]model.StoredResult, error)
}

// Projects resolves project ids, falling back to a stub for unknown ids
type Projects interface {
	Resolve(id string) model.Project
}

// Sender delivers a reply
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// Reply is the outbound answer to one action
type Reply struct {
	Subject string
	Body    string
}

// deeperPivots is how many recent pivot suggestions accompany a deeper digest
const deeperPivots = 5

// Router dispatches parsed actions. Every dispatched action is recorded,
// whatever its outcome.
type Router struct {
	store    Store
	engine   Engine
	deepener Deepener
	projects Projects
	sender   Sender
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewRouter wires a router; logger and metrics may be nil
func NewRouter(st Store, engine Engine, deepener Deepener, projects Projects, sender Sender, logger *zap.Logger, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		store:    st,
		engine:   engine,
		deepener: deepener,
		projects: projects,
		sender:   sender,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// HandleMessage parses msg and dispatches each action, sending one reply per
// action. A failed send does not stop the remaining actions; send errors are
// returned joined.
func (r *Router) HandleMessage(ctx context.Context, msg model.Message) error {
	actions := Parse(msg.Body)
	if len(actions) == 0 {
		r.logger.Debug("No reply commands in message", zap.String("subject", msg.Subject))
		return nil
	}

	var errs []error
	for _, a := range actions {
		reply := r.Dispatch(ctx, a, msg.Subject)
		if r.sender == nil {
			continue
		}
		err := r.sender.Send(ctx, reply.Subject, reply.Body)
		r.metrics.EmailSent("reply", err)
		if err != nil {
			r.logger.Warn("Failed to send reply",
				zap.String("action", string(a.Kind())),
				zap.Int64("result_id", a.Target()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s %d: %w", a.Kind(), a.Target(), err))
		}
	}
	return errors.Join(errs...)
}

// Dispatch records the action and produces its reply. It never fails: lookup
// and engine errors become reply text.
func (r *Router) Dispatch(ctx context.Context, a Action, subject string) Reply {
	r.store.RecordAction(ctx, model.ActionRecord{
		Kind:      a.Kind(),
		ResultID:  a.Target(),
		Subject:   subject,
		CreatedAt: r.now(),
	})
	r.metrics.ReplyAction(string(a.Kind()))

	result, err := r.store.FetchResultByID(ctx, a.Target())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(a.Target())
		}
		r.logger.Warn("Result lookup failed", zap.Int64("result_id", a.Target()), zap.Error(err))
		return lookupFailed(a.Target())
	}

	switch a := a.(type) {
	case Details:
		return Reply{Subject: digest.SubjectDetails, Body: digest.FormatDetails(result)}
	case Draft:
		return r.draft(ctx, a, result)
	case Pivot:
		return r.pivot(ctx, a, result)
	case Deeper:
		return r.deeper(ctx, a, result)
	}
	panic(fmt.Sprintf("reply: unhandled action %T", a))
}

func (r *Router) draft(ctx context.Context, a Draft, result model.StoredResult) Reply {
	project := r.projects.Resolve(result.ProjectID)
	text, err := r.engine.DraftApplication(ctx, project, result.AsSearchResult())
	if err != nil {
		return unavailable(a, err)
	}
	return Reply{Subject: digest.SubjectDraft, Body: text}
}

func (r *Router) pivot(ctx context.Context, a Pivot, result model.StoredResult) Reply {
	project := r.projects.Resolve(result.ProjectID)
	pivots, err := r.engine.SuggestPivots(ctx, project, []model.SearchResult{result.AsSearchResult()})
	if err != nil {
		return unavailable(a, err)
	}
	if len(pivots) == 0 {
		return Reply{Subject: digest.SubjectPivot, Body: "No pivot suggestions yet."}
	}
	return Reply{Subject: digest.SubjectPivot, Body: strings.Join(pivots, "\n")}
}

func (r *Router) deeper(ctx context.Context, a Deeper, result model.StoredResult) Reply {
	project := r.projects.Resolve(result.ProjectID)
	stored, err := r.deepener.Deepen(ctx, project, result)
	if err != nil {
		r.logger.Warn("Deeper search failed", zap.Int64("result_id", a.ResultID), zap.Error(err))
		return Reply{Subject: digest.SubjectReply, Body: fmt.Sprintf("Deeper search for result %d failed.", a.ResultID)}
	}

	pivots, err := r.store.FetchPivotSuggestions(ctx, result.ProjectID, deeperPivots)
	if err != nil {
		r.logger.Warn("Failed to load pivot suggestions", zap.String("project", result.ProjectID), zap.Error(err))
	}
	return Reply{Subject: digest.SubjectDeeper, Body: digest.Build(stored, pivots)}
}

func notFound(id int64) Reply {
	return Reply{Subject: digest.SubjectReply, Body: fmt.Sprintf("Result %d not found.", id)}
}

func lookupFailed(id int64) Reply {
	return Reply{Subject: digest.SubjectReply, Body: fmt.Sprintf("Could not look up result %d, please try again later.", id)}
}

func unavailable(a Action, err error) Reply {
	body := fmt.Sprintf("Could not %s result %d: the scoring engine is unavailable.", a.Kind(), a.Target())
	if !errors.Is(err, score.ErrEngineUnavailable) {
		body = fmt.Sprintf("Could not %s result %d: %v", a.Kind(), a.Target(), err)
	}
	return Reply{Subject: digest.SubjectReply, Body: body}
}
