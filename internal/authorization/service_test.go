package authorization_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/frontdesk/internal/authorization"
	"github.com/smallbiznis/frontdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) authorization.Service {
	t.Helper()
	enforcer, err := authorization.NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)
	return authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAdminCanDoEverything(t *testing.T) {
	svc := newService(t)
	admin := authorization.Actor{ID: 1, Role: "admin"}
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, admin, authorization.ObjectRoster, authorization.ActionImport))
	assert.NoError(t, svc.Authorize(ctx, admin, authorization.ObjectProduct, authorization.ActionCreate))
	assert.NoError(t, svc.Authorize(ctx, admin, authorization.ObjectStaff, authorization.ActionManage))
}

func TestFrontdeskIsLimited(t *testing.T) {
	svc := newService(t)
	desk := authorization.Actor{ID: 2, Role: "frontdesk"}
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, desk, authorization.ObjectCheckin, authorization.ActionView))
	assert.NoError(t, svc.Authorize(ctx, desk, authorization.ObjectMember, authorization.ActionView))
	assert.NoError(t, svc.Authorize(ctx, desk, authorization.ObjectOrder, authorization.ActionCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, desk, authorization.ObjectRoster, authorization.ActionImport), authorization.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, desk, authorization.ObjectProduct, authorization.ActionCreate), authorization.ErrForbidden)
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, authorization.Actor{ID: 3, Role: "admin"}, authorization.ObjectRoster, authorization.ActionImport))
	err := svc.Authorize(ctx, authorization.Actor{ID: 3, Role: "frontdesk"}, authorization.ObjectRoster, authorization.ActionImport)
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, authorization.Actor{Role: "admin"}, "x", "y"), authorization.ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.Actor{ID: 1}, "x", "y"), authorization.ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.Actor{ID: 1, Role: "admin"}, "", "y"), authorization.ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.Actor{ID: 1, Role: "admin"}, "x", ""), authorization.ErrInvalidAction)
}
