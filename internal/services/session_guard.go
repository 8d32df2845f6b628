package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"shopup-backend/internal/models"
	"shopup-backend/internal/repositories"
	"shopup-backend/pkg/auth"
	"shopup-backend/pkg/kvstore"
	"shopup-backend/pkg/messaging"
	"shopup-backend/pkg/metrics"
	"shopup-backend/pkg/observability"
)

// Outcome is the terminal state of a guard check.
type Outcome string

const (
	OutcomeAuthorized           Outcome = "authorized"
	OutcomeRedirectLogin        Outcome = "redirect_login"
	OutcomeRedirectVerification Outcome = "redirect_verification"
)

// Page areas.
const (
	AreaAdmin    = "admin"
	AreaSeller   = "seller"
	AreaCustomer = "customer"
)

// RoleLookup returns the role/status record of a user, or
// repositories.ErrNotFound when there is none.
type RoleLookup interface {
	LookupRole(ctx context.Context, userID string) (*models.RoleRecord, error)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, userID string) (*models.RoleRecord, error)

func (f RoleLookupFunc) LookupRole(ctx context.Context, userID string) (*models.RoleRecord, error) {
	return f(ctx, userID)
}

// AdminRoles reads role records from admin_users.
func AdminRoles(repo repositories.AdminRepository) RoleLookup {
	return RoleLookupFunc(func(ctx context.Context, userID string) (*models.RoleRecord, error) {
		admin, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return admin.RoleRecord(), nil
	})
}

// SellerRoles reads status records from sellers.
func SellerRoles(repo repositories.SellerRepository) RoleLookup {
	return RoleLookupFunc(func(ctx context.Context, userID string) (*models.RoleRecord, error) {
		seller, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return seller.RoleRecord(), nil
	})
}

// Policy describes how one page area is gated. A policy without Lookup only
// requires a session.
type Policy struct {
	Area             string
	LoginPath        string
	VerificationPath string
	Lookup           RoleLookup
	Allowed          []string
	RequireActive    bool
	SignOutOnDeny    bool
}

// AdminPolicy admits active admins and moderators. Denied sessions are signed
// out so no half-authenticated session lingers.
func AdminPolicy(lookup RoleLookup, loginPath string) Policy {
	return Policy{
		Area:          AreaAdmin,
		LoginPath:     loginPath,
		Lookup:        lookup,
		Allowed:       []string{models.AdminRoleAdmin, models.AdminRoleModerator},
		RequireActive: true,
		SignOutOnDeny: true,
	}
}

// SellerPolicy admits approved sellers and sends every other seller status to
// the verification page.
func SellerPolicy(lookup RoleLookup, loginPath, verificationPath string) Policy {
	return Policy{
		Area:             AreaSeller,
		LoginPath:        loginPath,
		VerificationPath: verificationPath,
		Lookup:           lookup,
		Allowed:          []string{models.SellerStatusApproved},
	}
}

func CustomerPolicy(loginPath string) Policy {
	return Policy{Area: AreaCustomer, LoginPath: loginPath}
}

// Admits reports whether record passes the role check of p.
func (p Policy) Admits(record *models.RoleRecord) bool {
	if record == nil || (p.RequireActive && !record.Active) {
		return false
	}
	return p.allows(record.Value)
}

func (p Policy) allows(value string) bool {
	for _, v := range p.Allowed {
		if v == value {
			return true
		}
	}
	return false
}

// Decision is the result of a guard check. Redirect is empty when authorized.
type Decision struct {
	Outcome  Outcome
	Redirect string
	Session  *models.Session
	Record   *models.RoleRecord
	Reason   string
}

func (d Decision) Authorized() bool { return d.Outcome == OutcomeAuthorized }

// SessionGuard gates page areas on a BaaS session plus an optional role check.
// It fails closed: every error ends in a redirect decision.
type SessionGuard struct {
	sessions  auth.SessionProvider
	publisher messaging.Publisher
	logger    *zap.Logger
}

func NewSessionGuard(sessions auth.SessionProvider, publisher messaging.Publisher, logger *zap.Logger) *SessionGuard {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionGuard{sessions: sessions, publisher: publisher, logger: logger}
}

func (g *SessionGuard) Check(ctx context.Context, accessToken string, policy Policy) Decision {
	log := observability.LoggerOr(ctx, g.logger).With(zap.String("area", policy.Area))

	session, err := g.sessions.GetSession(ctx, accessToken)
	if err != nil || session == nil {
		if err != nil && !errors.Is(err, auth.ErrNoSession) {
			log.Warn("session lookup failed", zap.Error(err))
		}
		return g.deny(ctx, policy, nil, OutcomeRedirectLogin, "no session")
	}

	if policy.Lookup == nil {
		return g.authorize(policy, session, nil)
	}

	record, err := policy.Lookup.LookupRole(ctx, session.User.ID)
	switch {
	case err != nil:
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Warn("role lookup failed", zap.String("user_id", session.User.ID), zap.Error(err))
		}
		return g.denyLogin(ctx, policy, session, "no role record")
	case record == nil:
		return g.denyLogin(ctx, policy, session, "no role record")
	case policy.RequireActive && !record.Active:
		return g.denyLogin(ctx, policy, session, "role record inactive")
	case policy.allows(record.Value):
		return g.authorize(policy, session, record)
	case policy.VerificationPath != "":
		d := g.deny(ctx, policy, session, OutcomeRedirectVerification, "status "+record.Value)
		d.Record = record
		return d
	default:
		return g.denyLogin(ctx, policy, session, "role "+record.Value+" not allowed")
	}
}

func (g *SessionGuard) authorize(policy Policy, session *models.Session, record *models.RoleRecord) Decision {
	metrics.RecordGuardDecision(policy.Area, string(OutcomeAuthorized))
	return Decision{Outcome: OutcomeAuthorized, Session: session, Record: record}
}

// denyLogin sends the session back to login, signing it out first when the
// policy asks for it.
func (g *SessionGuard) denyLogin(ctx context.Context, policy Policy, session *models.Session, reason string) Decision {
	if policy.SignOutOnDeny && session != nil {
		if err := g.sessions.SignOut(ctx, session.AccessToken); err != nil {
			observability.LoggerOr(ctx, g.logger).Warn("sign out on deny failed",
				zap.String("area", policy.Area), zap.String("user_id", session.User.ID), zap.Error(err))
		}
	}
	return g.deny(ctx, policy, session, OutcomeRedirectLogin, reason)
}

func (g *SessionGuard) deny(ctx context.Context, policy Policy, session *models.Session, outcome Outcome, reason string) Decision {
	metrics.RecordGuardDecision(policy.Area, string(outcome))

	redirect := policy.LoginPath
	if outcome == OutcomeRedirectVerification {
		redirect = policy.VerificationPath
	}

	event := messaging.SessionEvent{Area: policy.Area, Outcome: string(outcome), At: time.Now().UTC()}
	if session != nil {
		event.UserID = session.User.ID
	}
	if err := g.publisher.Publish(ctx, messaging.TopicSessionDenied, event.UserID, event); err != nil {
		observability.LoggerOr(ctx, g.logger).Debug("session event not published", zap.Error(err))
	}

	return Decision{Outcome: outcome, Redirect: redirect, Session: session, Reason: reason}
}

// CachedRoleLookup caches role records that admit pass, for at most ttl.
// Denying records, misses and failures always go to the inner lookup, so a
// newly approved seller is admitted on the next request. A revoked role stays
// cached until the ttl runs out or Invalidate is called.
type CachedRoleLookup struct {
	inner  RoleLookup
	store  kvstore.Store
	prefix string
	ttl    time.Duration
	admit  func(*models.RoleRecord) bool
	logger *zap.Logger
}

// NewCachedRoleLookup caches nothing when admit is nil or ttl is not positive.
func NewCachedRoleLookup(inner RoleLookup, store kvstore.Store, area string, ttl time.Duration, admit func(*models.RoleRecord) bool, logger *zap.Logger) *CachedRoleLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRoleLookup{
		inner:  inner,
		store:  store,
		prefix: "role:" + area,
		ttl:    ttl,
		admit:  admit,
		logger: logger,
	}
}

func (c *CachedRoleLookup) LookupRole(ctx context.Context, userID string) (*models.RoleRecord, error) {
	key := kvstore.Key(c.prefix, userID)

	var cached models.RoleRecord
	err := kvstore.GetJSON(ctx, c.store, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		c.logger.Debug("role cache read failed", zap.String("key", key), zap.Error(err))
	}

	record, err := c.inner.LookupRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 && c.admit != nil && c.admit(record) {
		if err := kvstore.SetJSON(ctx, c.store, key, record, c.ttl); err != nil {
			c.logger.Debug("role cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return record, nil
}

// Invalidate drops the cached record of userID.
func (c *CachedRoleLookup) Invalidate(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, kvstore.Key(c.prefix, userID))
}
