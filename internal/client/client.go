// Package client talks to a running fitsync daemon over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nm1236623-droid/fitsync/internal/auth"
	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/stats"
	"github.com/nm1236623-droid/fitsync/internal/syncmode"
)

// Record kinds accepted by Delete.
const (
	KindDiet     = "diet"
	KindTraining = "training"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) SignIn(ctx context.Context, token string) (auth.User, error) {
	var u auth.User
	err := c.do(ctx, http.MethodPost, "/api/session", map[string]string{"token": token}, &u)
	return u, err
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/session", nil, nil)
}

func (c *Client) Mode(ctx context.Context) (syncmode.Mode, error) {
	var v struct {
		Mode syncmode.Mode `json:"mode"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sync-mode", nil, &v)
	return v.Mode, err
}

func (c *Client) SetMode(ctx context.Context, m syncmode.Mode) error {
	return c.do(ctx, http.MethodPut, "/api/sync-mode", map[string]syncmode.Mode{"mode": m}, nil)
}

func (c *Client) AddDiet(ctx context.Context, rec models.DietRecord) (models.DietRecord, error) {
	var out models.DietRecord
	err := c.do(ctx, http.MethodPost, "/api/diet", rec, &out)
	return out, err
}

// Diet lists diet records, restricted to day (yyyy-MM-dd) when it is not empty.
func (c *Client) Diet(ctx context.Context, day string) ([]models.DietRecord, error) {
	var out []models.DietRecord
	err := c.do(ctx, http.MethodGet, "/api/diet"+dateQuery(day), nil, &out)
	return out, err
}

func (c *Client) AddTraining(ctx context.Context, rec models.TrainingRecord) (models.TrainingRecord, error) {
	var out models.TrainingRecord
	err := c.do(ctx, http.MethodPost, "/api/training", rec, &out)
	return out, err
}

func (c *Client) Training(ctx context.Context, day string) ([]models.TrainingRecord, error) {
	var out []models.TrainingRecord
	err := c.do(ctx, http.MethodGet, "/api/training"+dateQuery(day), nil, &out)
	return out, err
}

// Delete removes one record of kind.
func (c *Client) Delete(ctx context.Context, kind, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+kind+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) WeightProgression(ctx context.Context, exercise string) ([]stats.Point, error) {
	var out []stats.Point
	err := c.do(ctx, http.MethodGet, "/api/stats/weight?exercise="+url.QueryEscape(exercise), nil, &out)
	return out, err
}

func (c *Client) DailyCalories(ctx context.Context) ([]stats.Point, error) {
	var out []stats.Point
	err := c.do(ctx, http.MethodGet, "/api/stats/calories", nil, &out)
	return out, err
}

func dateQuery(day string) string {
	if day == "" {
		return ""
	}
	return "?date=" + url.QueryEscape(day)
}
