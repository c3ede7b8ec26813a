package aggregate

import (
	"log/slog"
	"sync"
)

// Coordinator гарантирует last-write-wins для запросов, порождаемых
// сменой фильтра периода. Каждая смена фильтра начинает запрос с
// монотонно растущим номером; результат применяется только если за
// время запроса не начался более новый. Отмена кооперативная:
// сам сетевой вызов не прерывается, его результат просто выбрасывается.
type Coordinator struct {
	mu     sync.Mutex
	seq    uint64
	closed bool
	logger *slog.Logger
}

// Token идентифицирует один начатый запрос
type Token struct {
	seq uint64
}

// NewCoordinator создает новый Coordinator
func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{logger: logger}
}

// Begin регистрирует новый запрос и помечает все предыдущие устаревшими
func (c *Coordinator) Begin() Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++

	return Token{seq: c.seq}
}

// Stale сообщает, устарел ли запрос. Проверять на каждой границе await.
func (c *Coordinator) Stale(t Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed || t.seq != c.seq
}

// Commit применяет результат запроса, если он всё ещё последний.
// Возвращает false для устаревших результатов, они молча отбрасываются.
func (c *Coordinator) Commit(t Token, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || t.seq != c.seq {
		if c.logger != nil {
			c.logger.Debug("stale request discarded",
				slog.Uint64("seq", t.seq),
				slog.Uint64("current", c.seq))
		}

		return false
	}

	apply()

	return true
}

// Close помечает все незавершённые запросы устаревшими.
// Вызывается при остановке, чтобы поздние ответы стали no-op.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}
