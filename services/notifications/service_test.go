package notifications_test

import (
	"errors"
	"testing"

	"openflix/internal/eventbus"
	"openflix/services/notifications"
)

func newService(t *testing.T) *notifications.Service {
	t.Helper()
	svc, err := notifications.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

type recordingBus struct {
	events []eventbus.Event
}

func (r *recordingBus) Publish(evt eventbus.Event) { r.events = append(r.events, evt) }

func TestPushAndList(t *testing.T) {
	svc := newService(t)

	if _, err := svc.Push("u1", "new_content", "New season available", "Season 6 just dropped.", "/title/1396"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := svc.Push("u1", "", "Welcome", "", ""); err != nil {
		t.Fatalf("push: %v", err)
	}

	items, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(items))
	}
	if items[0].Title != "Welcome" {
		t.Fatalf("expected newest first, got %q", items[0].Title)
	}
	if items[1].Type != "new_content" {
		t.Fatalf("unexpected type %q", items[1].Type)
	}
	if svc.UnreadCount("u1") != 2 {
		t.Fatalf("expected 2 unread, got %d", svc.UnreadCount("u1"))
	}
}

func TestListOrdersUnreadFirst(t *testing.T) {
	svc := newService(t)

	first, _ := svc.Push("u1", "info", "Oldest", "", "")
	second, _ := svc.Push("u1", "info", "Middle", "", "")
	svc.Push("u1", "info", "Newest", "", "")

	if err := svc.MarkRead("u1", second.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	items, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].Title != "Newest" || items[1].Title != "Oldest" {
		t.Fatalf("expected unread first ordering, got %q, %q", items[0].Title, items[1].Title)
	}
	if items[2].ID != second.ID || !items[2].Read {
		t.Fatalf("expected read notification last, got %+v", items[2])
	}
	_ = first
}

func TestMarkAllReadAndDelete(t *testing.T) {
	svc := newService(t)

	n, _ := svc.Push("u1", "info", "One", "", "")
	svc.Push("u1", "info", "Two", "", "")

	if err := svc.MarkAllRead("u1"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if svc.UnreadCount("u1") != 0 {
		t.Fatalf("expected 0 unread, got %d", svc.UnreadCount("u1"))
	}

	removed, err := svc.Delete("u1", n.ID)
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = svc.Delete("u1", n.ID)
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	svc := newService(t)

	if err := svc.MarkRead("u1", "missing"); !errors.Is(err, notifications.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}

func TestPushPublishesOnBus(t *testing.T) {
	svc := newService(t)
	bus := &recordingBus{}
	svc.SetPublisher(bus)

	if _, err := svc.Push("u1", "info", "Hello", "", ""); err != nil {
		t.Fatalf("push: %v", err)
	}

	if len(bus.events) != 1 {
		t.Fatalf("expected one bus event, got %d", len(bus.events))
	}
	if bus.events[0].Topic != eventbus.TopicNotification || bus.events[0].UserID != "u1" {
		t.Fatalf("unexpected event %+v", bus.events[0])
	}
}

func TestFeedSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	svc, err := notifications.NewService(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Push("u1", "info", "Persisted", "", ""); err != nil {
		t.Fatalf("push: %v", err)
	}

	reloaded, err := notifications.NewService(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	items, err := reloaded.List("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Persisted" {
		t.Fatalf("expected persisted feed, got %+v", items)
	}
}
