package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/normalize"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/roster/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errDryRun = errors.New("roster_dry_run")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Members memberdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	members memberdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("roster.service"),
		members: p.Members,
		metrics: p.Metrics,
	}
}

func (s *Service) Preview(ctx context.Context, rows []domain.Row) (domain.Plan, error) {
	all, err := s.members.ListAll(ctx)
	if err != nil {
		return domain.Plan{}, err
	}

	byID := make(map[snowflake.ID]memberdomain.Member, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}
	index := memberdomain.NewIndex(all)
	matcher := memberdomain.AnyKeyMatcher{Priority: memberdomain.DefaultPriority}

	plan := domain.Plan{Samples: emptySamples()}
	plan.Counts.TotalRows = len(rows)

	for _, row := range rows {
		probe := row.Probe()
		id, ok := matcher.Match(index, probe)
		if !ok {
			plan.Counts.Inserts++
			plan.Samples.Inserts = appendSample(plan.Samples.Inserts, domain.Sample{
				Name:  row.Name,
				Email: probe.Email,
				Phone: probe.Phone,
			})
			continue
		}

		existing := byID[id]
		sample := domain.Sample{Name: existing.Name, Email: memberdomain.Deref(existing.EmailLower)}
		switch {
		case !existing.Active() && row.Status == memberdomain.StatusActive:
			plan.Counts.Reactivations++
			plan.Samples.Reactivations = appendSample(plan.Samples.Reactivations, sample)
		case differs(row, probe, existing):
			plan.Counts.Updates++
			plan.Samples.Updates = appendSample(plan.Samples.Updates, sample)
		}
	}

	for _, m := range missing(all, rowKeys(rows)) {
		plan.Counts.DeactivateCandidates++
		plan.Samples.DeactivateCandidates = appendSample(plan.Samples.DeactivateCandidates, domain.Sample{
			Name:  m.Name,
			Email: memberdomain.Deref(m.EmailLower),
		})
	}
	return plan, nil
}

func (s *Service) Apply(ctx context.Context, rows []domain.Row, opts domain.ApplyOptions) (domain.ApplyResult, error) {
	result := domain.ApplyResult{
		Imported:          len(rows),
		DeactivateMissing: opts.DeactivateMissing,
		Committed:         opts.Commit,
	}
	keys := rowKeys(rows)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			id, err := s.members.ResolveOrCreateTx(ctx, tx, row.Identity())
			if err != nil {
				return err
			}
			if _, err := s.members.EnsureQRTokenTx(ctx, tx, id); err != nil {
				return err
			}
			if row.Status == memberdomain.StatusActive {
				result.Activated++
			}
		}

		if opts.DeactivateMissing && len(keys) > 0 {
			active, err := s.members.ListActiveTx(ctx, tx)
			if err != nil {
				return err
			}
			gone := missing(active, keys)
			result.Deactivated = len(gone)
			if len(gone) > 0 && opts.Commit {
				ids := make([]snowflake.ID, 0, len(gone))
				for _, m := range gone {
					ids = append(ids, m.ID)
				}
				if _, err := s.members.DeactivateTx(ctx, tx, ids); err != nil {
					return err
				}
			}
		}

		if !opts.Commit {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		s.log.Warn("roster import rolled back", zap.Int("rows", len(rows)), zap.Error(err))
		return domain.ApplyResult{}, err
	}

	if opts.Commit {
		s.metrics.RecordRosterRows(ctx, "upsert", result.Imported)
		s.metrics.RecordRosterRows(ctx, "deactivate", result.Deactivated)
	}
	s.log.Info("roster import applied",
		zap.Int("imported", result.Imported),
		zap.Int("activated", result.Activated),
		zap.Int("deactivated", result.Deactivated),
		zap.Bool("committed", result.Committed),
	)
	return result, nil
}

func rowKeys(rows []domain.Row) map[string]struct{} {
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if k := row.Probe().RowKey(); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// missing returns the active members whose own key is absent from keys.
func missing(members []memberdomain.Member, keys map[string]struct{}) []memberdomain.Member {
	var out []memberdomain.Member
	for _, m := range members {
		if !m.Active() {
			continue
		}
		k := m.Key()
		if k == "" {
			continue
		}
		if _, ok := keys[k]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func differs(row domain.Row, probe memberdomain.Probe, m memberdomain.Member) bool {
	if name := normalize.Text(row.Name); name != "" && name != m.Name {
		return true
	}
	return probe.Email != memberdomain.Deref(m.EmailLower) ||
		probe.Phone != memberdomain.Deref(m.PhoneE164) ||
		row.Tier != memberdomain.Deref(m.MembershipTier) ||
		row.Status != m.Status
}

func appendSample(samples []domain.Sample, s domain.Sample) []domain.Sample {
	if len(samples) >= domain.SampleLimit {
		return samples
	}
	return append(samples, s)
}

func emptySamples() domain.Samples {
	return domain.Samples{
		Inserts:              []domain.Sample{},
		Updates:              []domain.Sample{},
		Reactivations:        []domain.Sample{},
		DeactivateCandidates: []domain.Sample{},
	}
}
