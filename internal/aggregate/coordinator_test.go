package aggregate

import "testing"

func TestCoordinatorLastWriteWins(t *testing.T) {
	co := NewCoordinator(testLogger())

	// Запрос A начался первым, запрос B после него
	tokenA := co.Begin()
	tokenB := co.Begin()

	if !co.Stale(tokenA) {
		t.Error("A must be stale after B began")
	}

	if co.Stale(tokenB) {
		t.Error("B must not be stale")
	}

	// A разрешился позже B, его результат отбрасывается
	var state string

	if co.Commit(tokenB, func() { state = "B" }) != true {
		t.Error("B commit must succeed")
	}

	if co.Commit(tokenA, func() { state = "A" }) {
		t.Error("A commit must be rejected")
	}

	if state != "B" {
		t.Errorf("state = %q, want B", state)
	}
}

func TestCoordinatorSequentialCommits(t *testing.T) {
	co := NewCoordinator(testLogger())

	for i := 0; i < 3; i++ {
		token := co.Begin()

		if !co.Commit(token, func() {}) {
			t.Fatalf("commit %d must succeed when no newer request exists", i)
		}
	}
}

func TestCoordinatorClose(t *testing.T) {
	co := NewCoordinator(testLogger())

	token := co.Begin()
	co.Close()

	if !co.Stale(token) {
		t.Error("all requests must be stale after Close")
	}

	if co.Commit(token, func() { t.Error("apply must not run after Close") }) {
		t.Error("commit after Close must fail")
	}

	// Новые запросы после Close тоже не применяются
	late := co.Begin()
	if co.Commit(late, func() {}) {
		t.Error("commit after Close must fail even for new tokens")
	}
}
