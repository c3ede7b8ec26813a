package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrAuthRejected означает, что платформа явно отказала в доступе
	// (нет IB/admin роли). Не ретраится, нужен оператор.
	ErrAuthRejected = errors.New("authentication rejected by platform")

	// ErrNotConnected возвращается при вызове без живой сессии.
	// Ошибка вызывающего, автоматического подключения нет.
	ErrNotConnected = errors.New("not connected to platform")

	// ErrUnreachable означает исчерпанный бюджет переподключений.
	// Терминально до нового Connect().
	ErrUnreachable = errors.New("platform unreachable")
)

// Status представляет состояние подключения для presentation-слоя
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

const (
	maxConnectAttempts = 5
	baseBackoff        = 2 * time.Second
	handshakeTimeout   = 15 * time.Second
	callTimeout        = 30 * time.Second
	pingInterval       = 15 * time.Second
)

// Session представляет идентичность авторизованной сессии партнёра.
// Поля меняет только SessionManager при connect/disconnect,
// все остальные читают.
type Session struct {
	ID        string `json:"id"` // канал realtime-подписки
	Username  string `json:"username"`
	PartnerID int64  `json:"partner_id"`
}

// Message представляет кадр протокола платформы
type Message struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PushEvent представляет событие realtime-канала сессии
type PushEvent struct {
	Type string          `json:"type"` // trade | account | logout
	Data json.RawMessage `json:"data"`
}

// EventHandler обрабатывает push-событие
type EventHandler func(event PushEvent)

// SessionManager владеет единственным подключением к платформе.
// Одновременные Connect разделяют одну попытку (single-flight),
// второе подключение не открывается никогда.
type SessionManager struct {
	rest   *RESTClient
	creds  Credentials
	logger *slog.Logger

	flight singleflight.Group

	mu      sync.Mutex
	conn    *websocket.Conn
	session *Session
	status  Status
	done    chan struct{}

	// Гарантирует одного писателя на соединении
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan Message

	handlersMu     sync.RWMutex
	tradeHandler   EventHandler
	accountHandler EventHandler
	logoutHandler  EventHandler

	// Вызывается при окончательной потере подключения
	onLost func(err error)
}

// NewSessionManager создает новый SessionManager
func NewSessionManager(rest *RESTClient, creds Credentials, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		rest:    rest,
		creds:   creds,
		logger:  logger,
		status:  StatusDisconnected,
		pending: make(map[string]chan Message),
	}
}

// SetTradeHandler задает обработчик торговых событий
func (m *SessionManager) SetTradeHandler(h EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.tradeHandler = h
}

// SetAccountHandler задает обработчик событий аккаунта/баланса
func (m *SessionManager) SetAccountHandler(h EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.accountHandler = h
}

// SetLogoutHandler задает обработчик принудительного logout
func (m *SessionManager) SetLogoutHandler(h EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.logoutHandler = h
}

// SetConnectionLostHandler задает обработчик терминальной потери связи
func (m *SessionManager) SetConnectionLostHandler(fn func(err error)) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.onLost = fn
}

// Status возвращает текущее состояние подключения
func (m *SessionManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}

// GetSession возвращает живую сессию или ErrNotConnected.
// Молча подключаться она не будет никогда.
func (m *SessionManager) GetSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNotConnected
	}

	return m.session, nil
}

// Connect устанавливает единственное подключение к платформе.
// Параллельные вызовы ждут одну и ту же попытку.
func (m *SessionManager) Connect(ctx context.Context) (*Session, error) {
	v, err, _ := m.flight.Do("connect", func() (any, error) {
		return m.connect(ctx)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil
}

func (m *SessionManager) connect(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.session != nil {
		session := m.session
		m.mu.Unlock()

		return session, nil
	}

	m.status = StatusConnecting
	m.mu.Unlock()

	m.logger.Info("📡 Connecting to platform", slog.String("login", m.creds.Login))

	token, err := m.rest.ExchangeCredentials(ctx, m.creds)
	if err != nil {
		m.setStatus(StatusError)
		return nil, err
	}

	servers, err := m.rest.DiscoverServers(ctx, token)
	if err != nil {
		m.setStatus(StatusError)
		return nil, err
	}

	server := PickLiveServer(servers)

	conn, err := m.dialWithRetry(ctx, server.Address)
	if err != nil {
		m.setStatus(StatusError)
		return nil, err
	}

	session, err := m.handshake(conn, token)
	if err != nil {
		conn.Close()
		m.setStatus(StatusError)

		return nil, err
	}

	m.mu.Lock()
	m.conn = conn
	m.session = session
	m.status = StatusConnected
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.readMessages(conn, m.done)
	go m.sendPings(conn, m.done)

	m.logger.Info("✅ Platform session established",
		slog.String("session_id", session.ID),
		slog.String("username", session.Username),
		slog.Int64("partner_id", session.PartnerID))

	return session, nil
}

// dialWithRetry открывает транспорт с ограниченным числом попыток
// и растущим backoff. При исчерпании бюджета возвращает ErrUnreachable.
func (m *SessionManager) dialWithRetry(ctx context.Context, address string) (*websocket.Conn, error) {
	var lastErr error

	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

		conn, _, err := dialer.DialContext(ctx, address, nil)
		if err == nil {
			return conn, nil
		}

		lastErr = err

		m.logger.Warn("⚠️  Platform dial failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * baseBackoff):
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnreachable, lastErr)
}

// handshake выполняет прикладной login поверх открытого транспорта.
// Ответ с индикатором ошибки закрывает подключение и превращается
// в ErrAuthRejected с текстом платформы.
func (m *SessionManager) handshake(conn *websocket.Conn, token string) (*Session, error) {
	params, _ := json.Marshal(map[string]string{"token": token})

	login := Message{
		ID:      uuid.NewString(),
		Command: "login",
		Params:  params,
	}

	conn.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	if err := conn.WriteJSON(login); err != nil {
		return nil, fmt.Errorf("handshake write: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		return nil, fmt.Errorf("handshake read: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	if reply.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrAuthRejected, reply.Error)
	}

	return parseHandshake(reply.Data)
}

// parseHandshake извлекает идентичность сессии из фиксированных позиций
// payload'а. Платформа присылает либо объект {"Messages":[...]}, либо
// голый массив, принимаются оба варианта:
// [0] id сессии, [1] username, [2] id партнёра.
func parseHandshake(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("handshake: empty payload")
	}

	var envelope struct {
		Error    string `json:"Error"`
		Messages []any  `json:"Messages"`
	}

	var fields []any

	if err := json.Unmarshal(data, &envelope); err == nil && (envelope.Error != "" || envelope.Messages != nil) {
		if envelope.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrAuthRejected, envelope.Error)
		}

		fields = envelope.Messages
	} else {
		var bare []any
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("handshake: unrecognized payload shape")
		}

		fields = bare
	}

	if len(fields) < 3 {
		return nil, fmt.Errorf("handshake: payload too short: %d fields", len(fields))
	}

	session := &Session{
		ID:        positionalString(fields[0]),
		Username:  positionalString(fields[1]),
		PartnerID: positionalInt(fields[2]),
	}

	if session.ID == "" {
		return nil, fmt.Errorf("handshake: missing session id")
	}

	return session, nil
}

// positionalString приводит позиционное поле к строке (id приходит
// и числом, и строкой)
func positionalString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}

	return ""
}

func positionalInt(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		id, _ := strconv.ParseInt(n, 10, 64)
		return id
	}

	return 0
}

// Disconnect закрывает транспорт и чистит состояние сессии.
// Идемпотентен.
func (m *SessionManager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.disconnectLocked()
}

func (m *SessionManager) disconnectLocked() error {
	if m.conn == nil {
		m.status = StatusDisconnected
		m.session = nil

		return nil
	}

	close(m.done)

	m.writeMu.Lock()
	m.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	m.writeMu.Unlock()

	m.conn.Close()

	m.conn = nil
	m.session = nil
	m.done = nil
	m.status = StatusDisconnected

	m.failPending(ErrNotConnected)

	m.logger.Info("🛑 Platform session closed")

	return nil
}

func (m *SessionManager) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = s
}

// Call выполняет запрос-ответ поверх живой сессии
func (m *SessionManager) Call(ctx context.Context, command string, params any) (json.RawMessage, error) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	var rawParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}

		rawParams = encoded
	}

	msg := Message{
		ID:      uuid.NewString(),
		Command: command,
		Params:  rawParams,
	}

	reply := make(chan Message, 1)

	m.pendingMu.Lock()
	m.pending[msg.ID] = reply
	m.pendingMu.Unlock()

	defer func() {
		m.pendingMu.Lock()
		delete(m.pending, msg.ID)
		m.pendingMu.Unlock()
	}()

	m.writeMu.Lock()
	err := conn.WriteJSON(msg)
	m.writeMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("call %s: %w", command, err)
	}

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("call %s: timed out", command)
	case resp := <-reply:
		if resp.Error != "" {
			return nil, fmt.Errorf("call %s: %s", command, resp.Error)
		}

		return resp.Data, nil
	}
}

// failPending снимает все ожидающие вызовы при потере подключения.
// Вызывается под m.mu.
func (m *SessionManager) failPending(err error) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	for id, ch := range m.pending {
		ch <- Message{ID: id, Error: err.Error()}
		delete(m.pending, id)
	}
}

func (m *SessionManager) readMessages(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-done:
				// Штатный Disconnect
				return
			default:
			}

			m.logger.Error("Platform read error", slog.Any("error", err))
			m.reconnect()

			return
		}

		m.handleMessage(msg)
	}
}

func (m *SessionManager) handleMessage(msg Message) {
	// Ответ на запрос
	if msg.ID != "" {
		m.pendingMu.Lock()
		reply, ok := m.pending[msg.ID]
		m.pendingMu.Unlock()

		if ok {
			reply <- msg
			return
		}
	}

	// Push-событие канала сессии
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil || msg.Channel != session.ID {
		return
	}

	var event PushEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		m.logger.Error("Failed to unmarshal push event",
			slog.Any("error", err),
			slog.String("data", string(msg.Data)))

		return
	}

	m.handlersMu.RLock()
	tradeHandler := m.tradeHandler
	accountHandler := m.accountHandler
	logoutHandler := m.logoutHandler
	m.handlersMu.RUnlock()

	switch event.Type {
	case "trade":
		if tradeHandler != nil {
			tradeHandler(event)
		}
	case "account", "balance":
		if accountHandler != nil {
			accountHandler(event)
		}
	case "logout":
		m.logger.Warn("⚠️  Platform forced logout")

		if logoutHandler != nil {
			logoutHandler(event)
		}

		m.Disconnect()
	}
}

// reconnect пробует восстановить сессию после обрыва транспорта.
// Handshake выполняется заново; платформа выдаёт новый id сессии,
// поэтому подписки, зарегистрированные на старый id, становятся
// недействительны. Известное ограничение протокола.
func (m *SessionManager) reconnect() {
	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}

	m.session = nil
	m.done = nil
	m.status = StatusConnecting
	m.mu.Unlock()

	m.failPending(ErrNotConnected)

	m.logger.Info("📡 Reconnecting to platform...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(maxConnectAttempts)*time.Minute)
	defer cancel()

	if _, err := m.Connect(ctx); err != nil {
		m.setStatus(StatusError)

		m.logger.Error("❌ Reconnect failed, session lost", slog.Any("error", err))

		m.handlersMu.RLock()
		onLost := m.onLost
		m.handlersMu.RUnlock()

		if onLost != nil {
			onLost(err)
		}
	}
}

func (m *SessionManager) sendPings(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ping := Message{Command: "ping"}

			m.writeMu.Lock()
			err := conn.WriteJSON(ping)
			m.writeMu.Unlock()

			if err != nil {
				m.logger.Error("Platform ping error", slog.Any("error", err))
				return
			}
		}
	}
}
