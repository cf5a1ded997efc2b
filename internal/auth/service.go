// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/action"
	"github.com/wardenauth/warden/pkg/errutil"
)

// Identity is the result of a successful authentication.
type Identity struct {
	UserID   int64       `json:"user_id"`
	Username string      `json:"username"`
	Role     access.Role `json:"role"`
}

// ActionRequest asks the service to perform an action for a user.
type ActionRequest struct {
	Username string
	Action   string
	Value    string
	RecordID int64
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Users       UserStore
	Attempts    AttemptTracker
	Sessions    *SessionManager
	Permissions access.Checker
	Executor    action.Executor

	// Optional. Defaults: argon2id verifier, DefaultLockoutPolicy, slog.Default.
	Verifier *PasswordVerifier
	Lockout  LockoutPolicy
	Logger   *slog.Logger
}

// Service coordinates authentication, sessions and authorization.
// It holds no locks of its own; all shared state lives behind the injected
// stores and tracker.
type Service struct {
	users    UserStore
	attempts AttemptTracker
	sessions *SessionManager
	perms    access.Checker
	executor action.Executor
	verifier *PasswordVerifier
	lockout  LockoutPolicy
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Users == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user store is required")
	case cfg.Attempts == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("attempt tracker is required")
	case cfg.Sessions == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session manager is required")
	case cfg.Permissions == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("permission checker is required")
	case cfg.Executor == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("action executor is required")
	}

	if cfg.Verifier == nil {
		cfg.Verifier = NewPasswordVerifier(nil)
	}
	if cfg.Lockout.Threshold <= 0 {
		cfg.Lockout = DefaultLockoutPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		users:    cfg.Users,
		attempts: cfg.Attempts,
		sessions: cfg.Sessions,
		perms:    cfg.Permissions,
		executor: cfg.Executor,
		verifier: cfg.Verifier,
		lockout:  cfg.Lockout,
		logger:   cfg.Logger,
	}, nil
}

// Authenticate checks username and password.
//
// Each attempt first reserves a slot in the username's bucket. The threshold
// check and the increment are one atomic step. A locked bucket is refused
// without touching the store or the counter. Unknown users and wrong
// passwords keep their reservation as the recorded failure; success resets
// the bucket. Store outages and cancellation release the reservation, so
// they leave the counter as it was.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code(CodeCancelled).With("operation", "authenticate").Wrap(err)
	}
	if username == "" {
		recordAttempt(ResultInvalidUser)
		return nil, oops.Code(CodeInvalidUser).Errorf("username cannot be empty")
	}

	failures, reserved, err := s.attempts.Reserve(ctx, username, s.lockout.Limit())
	if err != nil {
		return nil, s.storeFailure(ctx, "reserve attempt", username, err)
	}
	if !reserved {
		recordAttempt(ResultLocked)
		s.logger.WarnContext(ctx, "authentication refused, account locked",
			"username", username,
			"failures", failures)
		return nil, oops.Code(CodeAccountLocked).
			With("username", username).
			With("failures", failures).
			Errorf("account is temporarily locked")
	}

	user, err := s.users.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.verifier.Burn(password)
			return nil, s.recordFailure(ctx, username, failures, CodeInvalidUser, ResultInvalidUser, "invalid username or password")
		}
		s.release(ctx, username)
		return nil, s.storeFailure(ctx, "lookup user", username, err)
	}

	if !s.verifier.Verify(password, user.PasswordDigest) {
		return nil, s.recordFailure(ctx, username, failures, CodeInvalidPassword, ResultInvalidPassword, "invalid username or password")
	}

	if !user.Active {
		return nil, s.recordFailure(ctx, username, failures, CodeInvalidUser, ResultInvalidUser, "account is disabled")
	}

	if err := ctx.Err(); err != nil {
		s.release(ctx, username)
		return nil, oops.Code(CodeCancelled).With("operation", "reset attempts").Wrap(err)
	}
	if err := s.attempts.Reset(ctx, username); err != nil {
		s.release(ctx, username)
		return nil, s.storeFailure(ctx, "reset attempts", username, err)
	}

	s.upgradeDigest(ctx, user, password)

	recordAttempt(ResultSuccess)
	s.logger.InfoContext(ctx, "authentication succeeded",
		"username", user.Username,
		"role", user.Role.String())

	return &Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// recordFailure keeps the reserved attempt as a failure for username and
// returns the coded error. If ctx has ended the reservation is released
// instead.
func (s *Service) recordFailure(ctx context.Context, username string, failures int, code, result, msg string) error {
	if err := ctx.Err(); err != nil {
		s.release(ctx, username)
		return oops.Code(CodeCancelled).With("operation", "record failure").Wrap(err)
	}

	recordAttempt(result)
	s.logger.WarnContext(ctx, "authentication failed",
		"username", username,
		"reason", result,
		"failures", failures)

	return oops.Code(code).
		With("username", username).
		With("failures", failures).
		Errorf("%s", msg)
}

// release gives back a reserved attempt. It runs even when ctx has ended.
func (s *Service) release(ctx context.Context, username string) {
	if err := s.attempts.Release(context.WithoutCancel(ctx), username); err != nil {
		errutil.Log(ctx, s.logger, slog.LevelWarn, "releasing attempt reservation failed", err, "username", username)
	}
}

func (s *Service) storeFailure(ctx context.Context, operation, username string, err error) error {
	wrapped := storeError(ctx, operation, err)
	if IsRetryable(wrapped) {
		recordAttempt(ResultError)
		errutil.Log(ctx, s.logger, slog.LevelError, "auth store unavailable", wrapped, "username", username)
	}
	return wrapped
}

// upgradeDigest rehashes legacy password digests after a successful login.
// Failures are logged and otherwise ignored.
func (s *Service) upgradeDigest(ctx context.Context, user *User, password string) {
	repo, ok := s.users.(UserRepository)
	if !ok || !s.verifier.NeedsUpgrade(user.PasswordDigest) {
		return
	}
	digest, err := s.verifier.Hash(password)
	if err != nil {
		errutil.Log(ctx, s.logger, slog.LevelWarn, "password digest upgrade failed", err, "username", user.Username)
		return
	}
	upgraded := *user
	upgraded.PasswordDigest = digest
	upgraded.UpdatedAt = time.Now()
	if err := repo.Update(ctx, &upgraded); err != nil {
		errutil.Log(ctx, s.logger, slog.LevelWarn, "password digest upgrade failed", err, "username", user.Username)
		return
	}
	s.logger.InfoContext(ctx, "password digest upgraded", "username", user.Username)
}

// CreateSession issues a session token for username.
func (s *Service) CreateSession(ctx context.Context, username string) (string, *Session, error) {
	token, session, err := s.sessions.Create(ctx, username)
	recordSession("create", err)
	if err != nil {
		return "", nil, oops.With("username", username).Wrap(err)
	}
	s.logger.InfoContext(ctx, "session created",
		"username", username,
		"session_id", session.ID.String(),
		"expires_at", session.ExpiresAt)
	return token, session, nil
}

// Login authenticates and, on success, creates a session.
func (s *Service) Login(ctx context.Context, username, password string) (*Identity, string, *Session, error) {
	identity, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", nil, err
	}
	token, session, err := s.CreateSession(ctx, identity.Username)
	if err != nil {
		return nil, "", nil, err
	}
	return identity, token, session, nil
}

// ValidateSession returns the session for token if it is active.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	session, err := s.sessions.Validate(ctx, token)
	recordSession("validate", err)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DestroySession revokes token. Unknown tokens are not an error.
func (s *Service) DestroySession(ctx context.Context, token string) error {
	err := s.sessions.Destroy(ctx, token)
	recordSession("destroy", err)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "session destroyed")
	return nil
}

// SweepSessions removes expired sessions.
func (s *Service) SweepSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", "count", n)
	}
	return n, nil
}

// CheckPermission reports whether role may perform actionName.
func (s *Service) CheckPermission(role access.Role, actionName string) bool {
	allowed := s.perms.Check(role, actionName)
	recordDecision(role, actionName, allowed)
	return allowed
}

// HandleAction looks up the user, checks the permission and dispatches to
// the executor.
func (s *Service) HandleAction(ctx context.Context, req ActionRequest) (action.Result, error) {
	if err := ctx.Err(); err != nil {
		return action.Result{}, oops.Code(CodeCancelled).With("operation", "handle action").Wrap(err)
	}

	user, err := s.users.Lookup(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return action.Result{}, oops.Code(CodeUserNotFound).
				With("username", req.Username).
				Wrap(err)
		}
		return action.Result{}, s.storeFailure(ctx, "lookup user", req.Username, err)
	}

	if !user.Active || !s.CheckPermission(user.Role, req.Action) {
		s.logger.WarnContext(ctx, "action denied",
			"username", user.Username,
			"role", user.Role.String(),
			"action", req.Action)
		return action.Result{}, oops.Code(CodePermissionDenied).
			With("username", user.Username).
			With("role", user.Role.String()).
			With("action", req.Action).
			Errorf("permission denied")
	}

	start := time.Now()
	result, err := s.executor.Execute(ctx, action.Request{
		UserID:   user.ID,
		Username: user.Username,
		Action:   req.Action,
		Value:    req.Value,
		RecordID: req.RecordID,
	})
	recordActionDuration(req.Action, time.Since(start))
	if err != nil {
		if errors.Is(err, action.ErrUnknownAction) {
			return action.Result{}, oops.Code(CodeUnknownAction).
				With("action", req.Action).
				Wrap(err)
		}
		return action.Result{}, storeError(ctx, "execute action", err)
	}

	s.logger.InfoContext(ctx, "action executed",
		"username", user.Username,
		"action", req.Action,
		"affected", result.Affected)
	return result, nil
}
