package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/checkin/domain"
	"github.com/smallbiznis/frontdesk/internal/checkin/repository"
	"github.com/smallbiznis/frontdesk/internal/checkin/service"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	memberrepo "github.com/smallbiznis/frontdesk/internal/member/repository"
	memberservice "github.com/smallbiznis/frontdesk/internal/member/service"
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	"github.com/smallbiznis/frontdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	members memberdomain.Service
	clock   *clock.FakeClock
}

func newFixture(t *testing.T, windowMinutes int) fixture {
	t.Helper()
	db := dbtest.Open(t, &memberdomain.Member{}, &domain.CheckIn{}, &domain.Location{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	node := dbtest.Node(t)
	cfg := config.Config{Checkin: config.CheckinConfig{LocationID: 1}}

	members := memberservice.New(memberservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  memberrepo.Provide(),
		Clock: clk,
		Cfg:   cfg,
		Email: email.NewLogProvider(zap.NewNop()),
	})
	svc := service.New(service.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repository.Provide(),
		Members: members,
		Clock:   clk,
		Cfg:     cfg,
		Settings: config.NewStaticCheckinSettings(config.CheckinSettings{
			DupWindowMinutes: windowMinutes,
			DefaultDeviceID:  "kiosk-1",
		}),
	})
	return fixture{db: db, svc: svc, members: members, clock: clk}
}

func (f fixture) member(t *testing.T, identity memberdomain.Identity) *memberdomain.Member {
	t.Helper()
	ctx := context.Background()
	id, err := f.members.ResolveOrCreate(ctx, identity)
	require.NoError(t, err)
	m, err := f.members.Get(ctx, id)
	require.NoError(t, err)
	return m
}

func TestRecordSuppressesWithinWindow(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	m := f.member(t, memberdomain.Identity{Name: "Jane Doe", Email: "jane@x.com"})
	req := domain.Request{MemberID: m.ID.String()}

	first, err := f.svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAccepted, first.Outcome)
	assert.Equal(t, "Jane Doe", first.MemberName)
	require.NotNil(t, first.CheckIn)
	assert.Equal(t, domain.MethodManual, first.CheckIn.Method)
	assert.Equal(t, "kiosk-1", first.CheckIn.SourceDeviceID)

	f.clock.Advance(4*time.Minute + 59*time.Second)
	second, err := f.svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuppressed, second.Outcome)
	assert.Equal(t, domain.MessageSuppressed, second.Message)
	assert.Equal(t, "Jane Doe", second.MemberName)

	f.clock.Advance(time.Second)
	third, err := f.svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAccepted, third.Outcome)

	assert.EqualValues(t, 2, dbtest.Count(t, f.db, "SELECT COUNT(1) FROM check_ins WHERE member_id = ?", m.ID))
}

func TestRecordZeroWindowNeverSuppresses(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	m := f.member(t, memberdomain.Identity{Name: "Sam Lee", Phone: "5551234567"})

	for i := 0; i < 3; i++ {
		res, err := f.svc.Record(ctx, domain.Request{Phone: "(555) 123-4567"})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeAccepted, res.Outcome)
		f.clock.Advance(time.Second)
	}
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, "SELECT COUNT(1) FROM check_ins WHERE member_id = ?", m.ID))
}

func TestRecordConcurrentBucketInsertIsSuppressed(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	m := f.member(t, memberdomain.Identity{Name: "Ana Ruiz", Email: "ana@x.com"})

	// A racing writer already claimed this window's slot.
	now := f.clock.Now()
	racer := &domain.CheckIn{
		ID:             dbtest.Node(t).Generate(),
		MemberID:       m.ID,
		LocationID:     1,
		CheckedInAt:    now.Add(-time.Hour),
		Method:         domain.MethodQR,
		SourceDeviceID: "kiosk-2",
		Status:         domain.StatusOK,
		WindowBucket:   domain.Bucket(now, 5*time.Minute),
	}
	require.NoError(t, repository.Provide().Insert(ctx, f.db, racer))

	res, err := f.svc.Record(ctx, domain.Request{Email: "ANA@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuppressed, res.Outcome)
	assert.EqualValues(t, 1, dbtest.Count(t, f.db, "SELECT COUNT(1) FROM check_ins"))
}

func TestRecordSelectors(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	m := f.member(t, memberdomain.Identity{Name: "Kai Moss", Email: "kai@x.com"})
	token, err := f.members.EnsureQRToken(ctx, m.ID)
	require.NoError(t, err)

	res, err := f.svc.Record(ctx, domain.Request{QRToken: token, DeviceID: "front-door"})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, res.Outcome)
	assert.Equal(t, domain.MethodQR, res.CheckIn.Method)
	assert.Equal(t, "front-door", res.CheckIn.SourceDeviceID)

	t.Run("non-numeric member id falls through to token", func(t *testing.T) {
		f.clock.Advance(10 * time.Minute)
		res, err := f.svc.Record(ctx, domain.Request{MemberID: "abc", QRToken: token})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeAccepted, res.Outcome)
		assert.Equal(t, domain.MethodQR, res.CheckIn.Method)
	})

	t.Run("numeric member id wins over contact", func(t *testing.T) {
		res, err := f.svc.Record(ctx, domain.Request{MemberID: "12345", Email: "kai@x.com"})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeNotFound, res.Outcome)
		assert.Equal(t, domain.MessageNotFound, res.Message)
	})

	t.Run("no selector", func(t *testing.T) {
		res, err := f.svc.Record(ctx, domain.Request{})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeNotFound, res.Outcome)
	})
}

func TestRecordInactiveMemberNotFound(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	m := f.member(t, memberdomain.Identity{Name: "Old Timer", Email: "old@x.com", Status: "inactive"})

	res, err := f.svc.Record(ctx, domain.Request{MemberID: m.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, res.Outcome)
	assert.EqualValues(t, 0, dbtest.Count(t, f.db, "SELECT COUNT(1) FROM check_ins"))
}

func TestRecentJoinsMemberNames(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	a := f.member(t, memberdomain.Identity{Name: "Alpha", Email: "a@x.com"})
	b := f.member(t, memberdomain.Identity{Name: "Bravo", Email: "b@x.com"})

	_, err := f.svc.Record(ctx, domain.Request{MemberID: a.ID.String()})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Record(ctx, domain.Request{MemberID: b.ID.String()})
	require.NoError(t, err)

	rows, err := f.svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bravo", rows[0].MemberName)
	assert.Equal(t, "Alpha", rows[1].MemberName)

	_, err = f.svc.Recent(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}
