package chat

import (
	"context"
	"testing"
)

func TestHistoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	h, err := NewHistory(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = h.Close() }()

	if _, err := h.Append(ctx, "p1", RoleUser, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Append(ctx, "p1", RoleAssistant, "hi there"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Append(ctx, "p2", RoleUser, "other project"); err != nil {
		t.Fatal(err)
	}

	msgs, err := h.Messages(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Content != "hello" || msgs[1].Content != "hi there" {
		t.Errorf("order wrong: %+v", msgs)
	}
	if msgs[0].ID == "" || msgs[0].CreatedAt.IsZero() {
		t.Errorf("metadata missing: %+v", msgs[0])
	}
}

func TestHistoryAdoptProject(t *testing.T) {
	ctx := context.Background()
	h, err := NewHistory(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = h.Close() }()

	if _, err := h.Append(ctx, "", RoleUser, "pre-project prompt"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Append(ctx, "other", RoleUser, "unrelated"); err != nil {
		t.Fatal(err)
	}

	if err := h.AdoptProject(ctx, "p9"); err != nil {
		t.Fatal(err)
	}

	adopted, err := h.Messages(ctx, "p9")
	if err != nil {
		t.Fatal(err)
	}
	if len(adopted) != 1 || adopted[0].Content != "pre-project prompt" {
		t.Errorf("adopted = %+v", adopted)
	}
	other, _ := h.Messages(ctx, "other")
	if len(other) != 1 {
		t.Errorf("unrelated transcript touched: %+v", other)
	}
}

func TestHistoryPersistsOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	h1, err := NewHistory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h1.Append(ctx, "p1", RoleUser, "saved"); err != nil {
		t.Fatal(err)
	}
	if err := h1.Close(); err != nil {
		t.Fatal(err)
	}

	h2, err := NewHistory(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = h2.Close() }()

	msgs, err := h2.Messages(ctx, "p1")
	if err != nil || len(msgs) != 1 || msgs[0].Content != "saved" {
		t.Errorf("reloaded = %+v, %v", msgs, err)
	}
}
