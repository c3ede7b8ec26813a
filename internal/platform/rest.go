package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ib_dashboard/internal/httpmiddleware"
)

// Credentials хранит учётные данные партнёра на платформе
type Credentials struct {
	Login    string
	Password string
}

// RESTClient представляет REST-часть платформы: обмен учётных данных
// на токен и обнаружение серверов
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRESTClient создает новый REST клиент платформы
func NewRESTClient(baseURL string, logger *slog.Logger) *RESTClient {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: httpmiddleware.Wrap(
			httpmiddleware.DefaultTransport(),
			httpmiddleware.RequestGetBodySetter,
			httpmiddleware.Logger(logger, 0),
		),
	}

	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type tokenRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// ExchangeCredentials меняет логин/пароль на bearer-токен
func (c *RESTClient) ExchangeCredentials(ctx context.Context, creds Credentials) (string, error) {
	body, _ := json.Marshal(tokenRequest{Login: creds.Login, Password: creds.Password})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("token exchange: bad response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tr.Token == "" {
		msg := tr.Error
		if msg == "" {
			msg = resp.Status
		}

		return "", fmt.Errorf("%w: %s", ErrAuthRejected, msg)
	}

	return tr.Token, nil
}

// Server представляет именованный endpoint платформы
type Server struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type serversResponse struct {
	Servers []Server `json:"servers"`
}

// DiscoverServers возвращает список серверов платформы
func (c *RESTClient) DiscoverServers(ctx context.Context, token string) ([]Server, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/servers", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server discovery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server discovery: %s", resp.Status)
	}

	var sr serversResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("server discovery: bad response: %w", err)
	}

	if len(sr.Servers) == 0 {
		return nil, fmt.Errorf("server discovery: empty server list")
	}

	return sr.Servers, nil
}

// PickLiveServer выбирает боевой realtime endpoint из списка
func PickLiveServer(servers []Server) Server {
	for _, s := range servers {
		name := strings.ToLower(s.Name)
		if strings.Contains(name, "live") || strings.Contains(name, "real") {
			return s
		}
	}

	return servers[0]
}
