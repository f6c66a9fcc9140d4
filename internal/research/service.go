package research

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/model"
)

// Executor runs a single research request.
type Executor interface {
	Run(ctx context.Context, req model.ResearchRequest) (*model.ResearchResult, error)
}

// Recorder persists finished runs and the researched-website exclusion list.
type Recorder interface {
	SaveRun(ctx context.Context, result *model.ResearchResult, entry model.HistoryEntry) error
	ResearchedWebsites(ctx context.Context) ([]string, error)
	AddResearchedWebsites(ctx context.Context, websites []string) error
}

// Archiver copies a finished result to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, result *model.ResearchResult) (string, error)
}

// Service runs research and records the outcome. Casinos surfaced by a run
// are excluded from discovery in later runs.
type Service struct {
	runner   Executor
	recorder Recorder
	archiver Archiver
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithArchiver archives every saved result.
func WithArchiver(a Archiver) ServiceOption {
	return func(s *Service) { s.archiver = a }
}

// NewService creates a Service.
func NewService(runner Executor, recorder Recorder, opts ...ServiceOption) *Service {
	s := &Service{runner: runner, recorder: recorder}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Execute runs req with the stored exclusion list applied, then saves the
// result. Archive failures are logged and do not fail the run.
func (s *Service) Execute(ctx context.Context, req model.ResearchRequest) (*model.ResearchResult, error) {
	if req.DiscoveryEnabled() {
		known, err := s.recorder.ResearchedWebsites(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "research: load researched websites")
		}
		req.ExcludeCasinoWebsites = mergeWebsites(req.ExcludeCasinoWebsites, known)
	}

	res, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.recorder.SaveRun(ctx, res, Summarize(res)); err != nil {
		return nil, eris.Wrapf(err, "research: save run %s", res.RunID)
	}
	if sites := ResearchedWebsites(res); len(sites) > 0 {
		if err := s.recorder.AddResearchedWebsites(ctx, sites); err != nil {
			return nil, eris.Wrap(err, "research: record researched websites")
		}
	}

	if s.archiver != nil {
		if key, err := s.archiver.Archive(ctx, res); err != nil {
			zap.L().Warn("archive failed", zap.String("run_id", res.RunID), zap.Error(err))
		} else {
			zap.L().Debug("archived run", zap.String("run_id", res.RunID), zap.String("key", key))
		}
	}
	return res, nil
}

// ResearchedWebsites lists the websites of missing casinos and of casinos
// with a discovered offer, in state order without duplicates.
func ResearchedWebsites(res *model.ResearchResult) []string {
	var sites []string
	for _, st := range model.AllStates {
		for _, c := range res.MissingCasinos[st] {
			sites = append(sites, c.Website)
		}
	}
	for _, c := range res.OfferComparisons {
		sites = append(sites, c.DiscoveredCasinoWebsite)
	}
	return mergeWebsites(nil, sites)
}

func mergeWebsites(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, w := range list {
			if w == "" {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
