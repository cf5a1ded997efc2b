// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      *auth.Identity `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type actionRequest struct {
	Value    string `json:"value"`
	RecordID int64  `json:"record_id"`
}

type permissionResponse struct {
	Role    string `json:"role"`
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

func health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return oops.Code(CodeBadRequest).Errorf("invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return oops.Code(CodeBadRequest).Errorf("username and password are required")
	}

	identity, token, session, err := s.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		User:      identity,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) getSession(c echo.Context) error {
	session := sessionFrom(c)
	return c.JSON(http.StatusOK, sessionResponse{
		ID:        session.ID.String(),
		Subject:   session.Subject,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.svc.DestroySession(c.Request().Context(), tokenFrom(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// runAction performs an action as the session's subject.
func (s *Server) runAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return oops.Code(CodeBadRequest).Errorf("invalid body")
	}

	result, err := s.svc.HandleAction(c.Request().Context(), auth.ActionRequest{
		Username: sessionFrom(c).Subject,
		Action:   c.Param("action"),
		Value:    req.Value,
		RecordID: req.RecordID,
	})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if result.Action == access.ActionWrite.String() {
		status = http.StatusCreated
	}
	return c.JSON(status, result)
}

// checkPermission answers a role/action query. Unknown roles are denied,
// not rejected.
func (s *Server) checkPermission(c echo.Context) error {
	roleName := c.Param("role")
	actionName := c.Param("action")

	role, err := access.ParseRole(roleName)
	if err != nil {
		role = access.RoleUnknown
	}
	return c.JSON(http.StatusOK, permissionResponse{
		Role:    roleName,
		Action:  actionName,
		Allowed: s.svc.CheckPermission(role, actionName),
	})
}
