package services

import (
	"testing"

	"github.com/google/uuid"
)

func TestDepositMemo_RoundTrip(t *testing.T) {
	id := uuid.New()
	got, ok := ParseDepositMemo(DepositMemo(id))
	if !ok || got != id {
		t.Fatalf("ParseDepositMemo(DepositMemo(%s)) = %s, %v", id, got, ok)
	}
}

func TestParseDepositMemo_Rejects(t *testing.T) {
	for _, comment := range []string{
		"",
		"hello",
		"deposit:",
		"deposit:not-a-uuid",
		"deposit:" + uuid.Nil.String(),
		"withdraw:" + uuid.New().String(),
	} {
		if _, ok := ParseDepositMemo(comment); ok {
			t.Errorf("ParseDepositMemo(%q) accepted", comment)
		}
	}

	id := uuid.New()
	if got, ok := ParseDepositMemo("  deposit: " + id.String() + "\n"); !ok || got != id {
		t.Errorf("whitespace around memo: got %s, %v", got, ok)
	}
}
