package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopup-backend/internal/models"
	"shopup-backend/internal/repositories"
	"shopup-backend/pkg/kvstore"
	"shopup-backend/pkg/messaging"
)

type staticRoles map[string]*models.RoleRecord

func (s staticRoles) LookupRole(_ context.Context, userID string) (*models.RoleRecord, error) {
	r, ok := s[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r, nil
}

type countingRoles struct {
	inner RoleLookup
	calls int
}

func (c *countingRoles) LookupRole(ctx context.Context, userID string) (*models.RoleRecord, error) {
	c.calls++
	return c.inner.LookupRole(ctx, userID)
}

func TestGuard_AdminMatrix(t *testing.T) {
	roles := staticRoles{
		"admin":     {UserID: "admin", Value: models.AdminRoleAdmin, Active: true},
		"moderator": {UserID: "moderator", Value: models.AdminRoleModerator, Active: true},
		"inactive":  {UserID: "inactive", Value: models.AdminRoleAdmin, Active: false},
		"support":   {UserID: "support", Value: "support", Active: true},
	}
	policy := AdminPolicy(roles, "/admin/login")

	tests := []struct {
		name        string
		token       string
		userID      string
		wantOutcome Outcome
		wantSignOut bool
	}{
		{name: "no session", token: "", wantOutcome: OutcomeRedirectLogin},
		{name: "active admin", token: "t-admin", userID: "admin", wantOutcome: OutcomeAuthorized},
		{name: "active moderator", token: "t-mod", userID: "moderator", wantOutcome: OutcomeAuthorized},
		{name: "no admin row", token: "t-customer", userID: "customer", wantOutcome: OutcomeRedirectLogin, wantSignOut: true},
		{name: "inactive admin", token: "t-inactive", userID: "inactive", wantOutcome: OutcomeRedirectLogin, wantSignOut: true},
		{name: "role not allowed", token: "t-support", userID: "support", wantOutcome: OutcomeRedirectLogin, wantSignOut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := newFakeSessions()
			if tt.userID != "" {
				sessions.add(tt.token, tt.userID)
			}
			guard := NewSessionGuard(sessions, nil, nil)

			d := guard.Check(context.Background(), tt.token, policy)

			assert.Equal(t, tt.wantOutcome, d.Outcome)
			if tt.wantOutcome == OutcomeAuthorized {
				assert.True(t, d.Authorized())
				assert.Empty(t, d.Redirect)
				require.NotNil(t, d.Session)
				assert.Equal(t, tt.userID, d.Session.User.ID)
			} else {
				assert.Equal(t, "/admin/login", d.Redirect)
			}
			if tt.wantSignOut {
				assert.Equal(t, []string{tt.token}, sessions.signedOut)
			} else {
				assert.Empty(t, sessions.signedOut)
			}
		})
	}
}

func TestGuard_SellerMatrix(t *testing.T) {
	roles := staticRoles{
		"approved": {UserID: "approved", Value: models.SellerStatusApproved, Active: true},
		"pending":  {UserID: "pending", Value: models.SellerStatusPending, Active: true},
		"draft":    {UserID: "draft", Value: models.SellerStatusDraft, Active: true},
		"rejected": {UserID: "rejected", Value: models.SellerStatusRejected, Active: true},
	}
	policy := SellerPolicy(roles, "/seller/login", "/seller/verification")

	tests := []struct {
		name         string
		userID       string
		wantOutcome  Outcome
		wantRedirect string
	}{
		{name: "no session", wantOutcome: OutcomeRedirectLogin, wantRedirect: "/seller/login"},
		{name: "no seller row", userID: "stranger", wantOutcome: OutcomeRedirectLogin, wantRedirect: "/seller/login"},
		{name: "approved", userID: "approved", wantOutcome: OutcomeAuthorized},
		{name: "pending", userID: "pending", wantOutcome: OutcomeRedirectVerification, wantRedirect: "/seller/verification"},
		{name: "draft", userID: "draft", wantOutcome: OutcomeRedirectVerification, wantRedirect: "/seller/verification"},
		{name: "rejected", userID: "rejected", wantOutcome: OutcomeRedirectVerification, wantRedirect: "/seller/verification"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := newFakeSessions()
			token := ""
			if tt.userID != "" {
				token = "t-" + tt.userID
				sessions.add(token, tt.userID)
			}
			guard := NewSessionGuard(sessions, nil, nil)

			d := guard.Check(context.Background(), token, policy)

			assert.Equal(t, tt.wantOutcome, d.Outcome)
			assert.Equal(t, tt.wantRedirect, d.Redirect)
			assert.Empty(t, sessions.signedOut, "seller denials keep the session")
		})
	}
}

func TestGuard_VerificationDecisionCarriesRecord(t *testing.T) {
	roles := staticRoles{"u1": {UserID: "u1", Value: models.SellerStatusPending, Active: true}}
	guard := NewSessionGuard(newFakeSessions().add("tok", "u1"), nil, nil)

	d := guard.Check(context.Background(), "tok", SellerPolicy(roles, "/seller/login", "/seller/verification"))

	require.NotNil(t, d.Record)
	assert.Equal(t, models.SellerStatusPending, d.Record.Value)
}

func TestGuard_CustomerNeedsSessionOnly(t *testing.T) {
	guard := NewSessionGuard(newFakeSessions().add("tok", "u1"), nil, nil)
	policy := CustomerPolicy("/login")

	assert.Equal(t, OutcomeAuthorized, guard.Check(context.Background(), "tok", policy).Outcome)

	d := guard.Check(context.Background(), "expired", policy)
	assert.Equal(t, OutcomeRedirectLogin, d.Outcome)
	assert.Equal(t, "/login", d.Redirect)
}

func TestGuard_FailsClosedOnErrors(t *testing.T) {
	ctx := context.Background()

	sessions := newFakeSessions().add("tok", "u1")
	sessions.err = errors.New("auth service unreachable")
	d := NewSessionGuard(sessions, nil, nil).Check(ctx, "tok", CustomerPolicy("/login"))
	assert.Equal(t, OutcomeRedirectLogin, d.Outcome)

	failing := RoleLookupFunc(func(context.Context, string) (*models.RoleRecord, error) {
		return nil, errors.New("connection refused")
	})
	sessions = newFakeSessions().add("tok", "u1")
	d = NewSessionGuard(sessions, nil, nil).Check(ctx, "tok", AdminPolicy(failing, "/admin/login"))
	assert.Equal(t, OutcomeRedirectLogin, d.Outcome)
	assert.Equal(t, []string{"tok"}, sessions.signedOut)

	sessions = newFakeSessions().add("tok", "u1")
	d = NewSessionGuard(sessions, nil, nil).Check(ctx, "tok", SellerPolicy(failing, "/seller/login", "/seller/verification"))
	assert.Equal(t, OutcomeRedirectLogin, d.Outcome)
	assert.Equal(t, "/seller/login", d.Redirect)
}

func TestGuard_PublishesDenials(t *testing.T) {
	pub := &recordingPublisher{}
	guard := NewSessionGuard(newFakeSessions().add("tok", "u1"), pub, nil)

	guard.Check(context.Background(), "tok", CustomerPolicy("/login"))
	guard.Check(context.Background(), "tok", AdminPolicy(staticRoles{}, "/admin/login"))

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.TopicSessionDenied, events[0].topic)
	event := events[0].value.(messaging.SessionEvent)
	assert.Equal(t, AreaAdmin, event.Area)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, string(OutcomeRedirectLogin), event.Outcome)
}

func TestCachedRoleLookup_CachesFoundRecords(t *testing.T) {
	ctx := context.Background()
	inner := &countingRoles{inner: staticRoles{"u1": {UserID: "u1", Value: models.SellerStatusApproved, Active: true}}}
	store := kvstore.NewMemory()
	cached := NewCachedRoleLookup(inner, store, AreaSeller, time.Minute, SellerPolicy(nil, "", "").Admits, nil)

	for i := 0; i < 3; i++ {
		record, err := cached.LookupRole(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, models.SellerStatusApproved, record.Value)
	}
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, cached.Invalidate(ctx, "u1"))
	_, err := cached.LookupRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRoleLookup_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	roles := staticRoles{}
	inner := &countingRoles{inner: roles}
	cached := NewCachedRoleLookup(inner, kvstore.NewMemory(), AreaSeller, time.Minute, SellerPolicy(nil, "", "").Admits, nil)

	_, err := cached.LookupRole(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	roles["u1"] = &models.RoleRecord{UserID: "u1", Value: models.SellerStatusApproved, Active: true}
	record, err := cached.LookupRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.SellerStatusApproved, record.Value)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRoleLookup_ApprovedSellerAdmittedOnNextRequest(t *testing.T) {
	ctx := context.Background()
	roles := staticRoles{"u1": {UserID: "u1", Value: models.SellerStatusPending, Active: true}}
	sessions := newFakeSessions()
	sessions.add("tok", "u1")
	store := kvstore.NewMemory()

	cached := NewCachedRoleLookup(roles, store, AreaSeller, time.Minute, SellerPolicy(nil, "", "").Admits, nil)
	policy := SellerPolicy(cached, "/login", "/seller/verification")
	guard := NewSessionGuard(sessions, nil, nil)

	assert.Equal(t, OutcomeRedirectVerification, guard.Check(ctx, "tok", policy).Outcome)
	_, err := store.Get(ctx, "role:seller:u1")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	roles["u1"] = &models.RoleRecord{UserID: "u1", Value: models.SellerStatusApproved, Active: true}
	assert.Equal(t, OutcomeAuthorized, guard.Check(ctx, "tok", policy).Outcome)
}

func TestCachedRoleLookup_InactiveAdminIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingRoles{inner: staticRoles{"u1": {UserID: "u1", Value: models.AdminRoleAdmin, Active: false}}}
	cached := NewCachedRoleLookup(inner, kvstore.NewMemory(), AreaAdmin, time.Minute, AdminPolicy(nil, "").Admits, nil)

	for i := 0; i < 2; i++ {
		_, err := cached.LookupRole(ctx, "u1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestGuard_DeactivatedAdminDeniedNextRequest(t *testing.T) {
	ctx := context.Background()
	roles := staticRoles{"u1": {UserID: "u1", Value: models.AdminRoleAdmin, Active: true}}
	sessions := newFakeSessions()
	sessions.add("tok", "u1")
	guard := NewSessionGuard(sessions, nil, nil)

	t.Run("uncached", func(t *testing.T) {
		cached := NewCachedRoleLookup(roles, kvstore.NewMemory(), AreaAdmin, 0, AdminPolicy(nil, "").Admits, nil)
		policy := AdminPolicy(cached, "/admin/login")

		require.Equal(t, OutcomeAuthorized, guard.Check(ctx, "tok", policy).Outcome)
		roles["u1"] = &models.RoleRecord{UserID: "u1", Value: models.AdminRoleAdmin, Active: false}
		assert.Equal(t, OutcomeRedirectLogin, guard.Check(ctx, "tok", policy).Outcome)
	})

	t.Run("cached then invalidated", func(t *testing.T) {
		roles["u1"] = &models.RoleRecord{UserID: "u1", Value: models.AdminRoleAdmin, Active: true}
		sessions.add("tok", "u1")
		cached := NewCachedRoleLookup(roles, kvstore.NewMemory(), AreaAdmin, time.Minute, AdminPolicy(nil, "").Admits, nil)
		policy := AdminPolicy(cached, "/admin/login")

		require.Equal(t, OutcomeAuthorized, guard.Check(ctx, "tok", policy).Outcome)
		roles["u1"] = &models.RoleRecord{UserID: "u1", Value: models.AdminRoleAdmin, Active: false}
		require.NoError(t, cached.Invalidate(ctx, "u1"))
		assert.Equal(t, OutcomeRedirectLogin, guard.Check(ctx, "tok", policy).Outcome)
	})
}

func TestPolicy_Admits(t *testing.T) {
	admin := AdminPolicy(nil, "")
	assert.True(t, admin.Admits(&models.RoleRecord{Value: models.AdminRoleModerator, Active: true}))
	assert.False(t, admin.Admits(&models.RoleRecord{Value: models.AdminRoleAdmin, Active: false}))
	assert.False(t, admin.Admits(nil))

	seller := SellerPolicy(nil, "", "")
	assert.True(t, seller.Admits(&models.RoleRecord{Value: models.SellerStatusApproved}))
	assert.False(t, seller.Admits(&models.RoleRecord{Value: models.SellerStatusPending, Active: true}))
}

func TestAdminRoles_MapsRepositoryRows(t *testing.T) {
	repo := adminRepoFunc(func(_ context.Context, userID string) (*models.AdminUser, error) {
		if userID != "7f1c4d0e-8a53-4c0f-9d0b-0f3f1d3c2a10" {
			return nil, repositories.ErrNotFound
		}
		return &models.AdminUser{Role: models.AdminRoleModerator, IsActive: true}, nil
	})

	record, err := AdminRoles(repo).LookupRole(context.Background(), "7f1c4d0e-8a53-4c0f-9d0b-0f3f1d3c2a10")
	require.NoError(t, err)
	assert.Equal(t, models.AdminRoleModerator, record.Value)
	assert.True(t, record.Active)

	_, err = AdminRoles(repo).LookupRole(context.Background(), "someone-else")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

type adminRepoFunc func(ctx context.Context, userID string) (*models.AdminUser, error)

func (f adminRepoFunc) GetByUserID(ctx context.Context, userID string) (*models.AdminUser, error) {
	return f(ctx, userID)
}
