package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ib_dashboard/internal/httpmiddleware"
)

// Client представляет клиента локального backend-коллаборатора (OTP, 2FA, сброс
// пароля). Вся логика живёт на той стороне, здесь только HTTP JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Response представляет стандартный ответ коллаборатора
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// NewClient создает новый backend клиент
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: httpmiddleware.Wrap(
				httpmiddleware.DefaultTransport(),
				httpmiddleware.RequestGetBodySetter,
				httpmiddleware.Logger(logger, 0),
			),
		},
		logger: logger,
	}
}

// SendOTP просит коллаборатора отправить одноразовый код
func (c *Client) SendOTP(ctx context.Context, email string) (Response, error) {
	return c.post(ctx, "/otp/send", map[string]string{"email": email})
}

// VerifyOTP проверяет одноразовый код
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (Response, error) {
	return c.post(ctx, "/otp/verify", map[string]string{"email": email, "code": code})
}

// Setup2FA начинает настройку 2FA
func (c *Client) Setup2FA(ctx context.Context, username string) (Response, error) {
	return c.post(ctx, "/2fa/setup", map[string]string{"username": username})
}

// Verify2FA проверяет 2FA код
func (c *Client) Verify2FA(ctx context.Context, username, code string) (Response, error) {
	return c.post(ctx, "/2fa/verify", map[string]string{"username": username, "code": code})
}

// Check2FA сообщает, включен ли 2FA
func (c *Client) Check2FA(ctx context.Context, username string) (Response, error) {
	return c.post(ctx, "/2fa/check", map[string]string{"username": username})
}

// Disable2FA отключает 2FA
func (c *Client) Disable2FA(ctx context.Context, username, code string) (Response, error) {
	return c.post(ctx, "/2fa/disable", map[string]string{"username": username, "code": code})
}

// ResetPassword запускает сброс пароля
func (c *Client) ResetPassword(ctx context.Context, email string) (Response, error) {
	return c.post(ctx, "/password/reset", map[string]string{"email": email})
}

func (c *Client) post(ctx context.Context, path string, payload any) (Response, error) {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Response{}, fmt.Errorf("backend %s: bad response: %w", path, err)
	}

	return r, nil
}
