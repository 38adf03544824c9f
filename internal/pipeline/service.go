package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/catalog"
	"github.com/ppiankov/grantscout/internal/digest"
	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/reply"
	"github.com/ppiankov/grantscout/internal/store"
)

// Sender delivers plain-text mail to the configured recipient
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// Poller returns unseen inbound messages, marking them seen
type Poller interface {
	Poll(ctx context.Context) ([]model.Message, error)
}

// Service composes the user-facing flows
type Service struct {
	catalog   *catalog.Catalog
	discovery *Discovery
	store     *store.Store
	router    *reply.Router
	sender    Sender
	poller    Poller
	digest    model.DigestConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// ServiceDeps are the collaborators of a Service
type ServiceDeps struct {
	Catalog   *catalog.Catalog
	Discovery *Discovery
	Store     *store.Store
	Router    *reply.Router
	Sender    Sender
	Poller    Poller
	Digest    model.DigestConfig
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// NewService creates a service
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Digest
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.MaxPivots <= 0 {
		cfg.MaxPivots = 10
	}
	return &Service{
		catalog:   deps.Catalog,
		discovery: deps.Discovery,
		store:     deps.Store,
		router:    deps.Router,
		sender:    deps.Sender,
		poller:    deps.Poller,
		digest:    cfg,
		logger:    logger,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// Discover runs discovery for one project (projectID set) or every catalog project.
// A failing project is logged and skipped; the error is returned joined once all ran.
func (s *Service) Discover(ctx context.Context, projectID string, depth int) ([]*Report, error) {
	projects, err := s.catalog.Select(projectID)
	if err != nil {
		return nil, err
	}

	var (
		reports []*Report
		errs    []error
	)
	for _, p := range projects {
		r, err := s.discovery.Run(ctx, p, depth)
		if err != nil {
			if ctx.Err() != nil {
				return reports, err
			}
			s.logger.Error("Discovery failed", zap.String("project", p.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("project %s: %w", p.ID, err))
		}
		if r != nil {
			reports = append(reports, r)
		}
	}
	return reports, errors.Join(errs...)
}

// DigestFromReports renders the best results of a discovery pass: the top
// results by score and the first pivot suggestions.
func (s *Service) DigestFromReports(reports []*Report) (string, []int64) {
	var (
		results []model.StoredResult
		pivots  []model.PivotSuggestion
	)
	for _, r := range reports {
		results = append(results, r.Stored...)
		for _, p := range r.Pivots {
			pivots = append(pivots, model.PivotSuggestion{ProjectID: r.ProjectID, Suggestion: p})
		}
	}

	results = digest.FilterListable(results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ScoreValue() > results[j].ScoreValue()
	})
	results = results[:min(len(results), s.digest.MaxResults)]
	pivots = pivots[:min(len(pivots), s.digest.MaxPivots)]

	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return digest.Build(results, pivots), ids
}

// DiscoverAndEmail runs discovery and mails the digest. A failed send is
// logged and does not fail the run.
func (s *Service) DiscoverAndEmail(ctx context.Context, projectID string, depth int) (string, error) {
	defer s.metrics.ObserveJob("discovery", s.now())

	reports, err := s.Discover(ctx, projectID, depth)
	if err != nil && len(reports) == 0 {
		return "", err
	}

	body, ids := s.DigestFromReports(reports)
	if sendErr := s.send(ctx, "digest", digest.SubjectDigest, body); sendErr != nil {
		s.logger.Warn("Digest not sent", zap.Error(sendErr))
		return body, err
	}
	if markErr := s.store.MarkShown(ctx, ids); markErr != nil {
		s.logger.Warn("Failed to mark digest results shown", zap.Error(markErr))
	}
	return body, err
}

// SendDigest mails a digest built from the store: results at or above the
// minimum score that are still open, not yet shown first.
func (s *Service) SendDigest(ctx context.Context, projectID string) (string, error) {
	results, err := s.store.FetchResultsForDigest(ctx, projectID, s.digest.MinScore, 0)
	if err != nil {
		return "", err
	}
	results = digest.FilterActive(digest.FilterListable(results), s.now())
	results = results[:min(len(results), s.digest.MaxResults)]

	pivots, err := s.store.FetchPivotSuggestions(ctx, projectID, s.digest.MaxPivots)
	if err != nil {
		return "", err
	}

	body := digest.Build(results, pivots)
	if err := s.send(ctx, "digest", digest.SubjectDigest, body); err != nil {
		return body, err
	}

	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	if err := s.store.MarkShown(ctx, ids); err != nil {
		s.logger.Warn("Failed to mark digest results shown", zap.Error(err))
	}
	return body, nil
}

// Snapshot is the most recent state of the store for a report
type Snapshot struct {
	ProjectID string                  `json:"project_id,omitempty"`
	Generated time.Time               `json:"generated"`
	Results   []model.StoredResult    `json:"results"`
	Pivots    []model.PivotSuggestion `json:"pivots"`
}

// Text renders the snapshot as a digest
func (s Snapshot) Text() string {
	return digest.Build(s.Results, s.Pivots)
}

// Report reads the newest results and pivot suggestions without sending anything
func (s *Service) Report(ctx context.Context, projectID string, limit int) (Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	results, err := s.store.FetchRecentResults(ctx, projectID, limit)
	if err != nil {
		return Snapshot{}, err
	}
	pivots, err := s.store.FetchPivotSuggestions(ctx, projectID, s.digest.MaxPivots)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ProjectID: projectID, Generated: s.now().UTC(), Results: results, Pivots: pivots}, nil
}

// ProcessReplies polls the mailbox and routes each message's commands.
// It returns the number of messages handled.
func (s *Service) ProcessReplies(ctx context.Context) (int, error) {
	defer s.metrics.ObserveJob("replies", s.now())

	if s.poller == nil {
		return 0, errors.New("no reply poller configured")
	}
	messages, err := s.poller.Poll(ctx)
	if err != nil && len(messages) == 0 {
		return 0, fmt.Errorf("poll replies: %w", err)
	}

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, msg := range messages {
		if err := s.router.HandleMessage(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info("Processed replies", zap.Int("messages", len(messages)))
	return len(messages), errors.Join(errs...)
}

// RunAll runs discovery with its digest, then processes replies
func (s *Service) RunAll(ctx context.Context) error {
	if _, err := s.DiscoverAndEmail(ctx, "", 0); err != nil {
		return err
	}
	_, err := s.ProcessReplies(ctx)
	return err
}

func (s *Service) send(ctx context.Context, kind, subject, body string) error {
	if s.sender == nil {
		return errors.New("no mail sender configured")
	}
	err := s.sender.Send(ctx, subject, body)
	s.metrics.EmailSent(kind, err)
	return err
}
