package coreservice

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"kickride/internal/domain"
)

// Accounts is the accounts-service client: rider lookup, license, points
// and notifications.
type Accounts struct {
	c *client
}

// NewAccounts creates an accounts client. tokens should be a long-lived
// source for the "coreservice-accounts" subject.
func NewAccounts(baseURL string, tokens *TokenSource, timeout time.Duration) *Accounts {
	return &Accounts{c: newClient("accounts", baseURL, tokens, timeout)}
}

// Authorize resolves a rider session id.
func (a *Accounts) Authorize(ctx context.Context, sessionID string) (*domain.Rider, error) {
	var resp struct {
		User domain.Rider `json:"user"`
	}
	body := map[string]string{"sessionId": sessionID}
	if err := a.c.do(ctx, "authorize", http.MethodPost, "users/authorize", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// GetUser fetches a rider by id.
func (a *Accounts) GetUser(ctx context.Context, userID string) (*domain.Rider, error) {
	var resp struct {
		User domain.Rider `json:"user"`
	}
	if err := a.c.do(ctx, "get_user", http.MethodGet, "users/"+url.PathEscape(userID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// GetLicense fetches the rider's license. The accounts service answers 404
// when none is registered.
func (a *Accounts) GetLicense(ctx context.Context, userID string) (*domain.License, error) {
	var resp struct {
		License domain.License `json:"license"`
	}
	query := url.Values{"orThrow": {"true"}}
	if err := a.c.do(ctx, "get_license", http.MethodGet, "users/"+url.PathEscape(userID)+"/license", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.License, nil
}

// AwardPoints grants incentive points to a rider.
func (a *Accounts) AwardPoints(ctx context.Context, userID, kind string, points int) error {
	body := struct {
		Type  string `json:"type"`
		Point int    `json:"point"`
	}{Type: kind, Point: points}
	return a.c.do(ctx, "award_points", http.MethodPost, "users/"+url.PathEscape(userID)+"/points", nil, body, nil)
}

// SendNotification pushes a notification to a rider.
func (a *Accounts) SendNotification(ctx context.Context, userID, title, message string, data map[string]any) error {
	body := struct {
		Title   string         `json:"title"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data,omitempty"`
	}{Title: title, Message: message, Data: data}
	return a.c.do(ctx, "send_notification", http.MethodPost, "users/"+url.PathEscape(userID)+"/notifications", nil, body, nil)
}
