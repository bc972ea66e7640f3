package users_test

import (
	"errors"
	"testing"

	"openflix/models"
	"openflix/services/users"
)

// 1x1 transparent PNG
var testPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41, // IDAT chunk
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, // IEND chunk
	0x42, 0x60, 0x82,
}

func TestServiceInitialisesDefaultUser(t *testing.T) {
	svc, err := users.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	list := svc.List()
	if len(list) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(list))
	}

	if list[0].ID != models.DefaultUserID {
		t.Fatalf("expected default user ID %q, got %q", models.DefaultUserID, list[0].ID)
	}
	if list[0].Name != models.DefaultUserName {
		t.Fatalf("expected default user name %q, got %q", models.DefaultUserName, list[0].Name)
	}
}

func TestServiceCreateRenameAndDelete(t *testing.T) {
	svc, err := users.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	created, err := svc.Create("Evening Watcher")
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	if created.ID == "" {
		t.Fatalf("expected created user to have id")
	}

	renamed, err := svc.Rename(created.ID, "Night Owl")
	if err != nil {
		t.Fatalf("rename returned error: %v", err)
	}

	if renamed.Name != "Night Owl" {
		t.Fatalf("expected renamed user to have updated name, got %q", renamed.Name)
	}

	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}

	if svc.Exists(created.ID) {
		t.Fatalf("expected user to be deleted")
	}
}

func TestDeleteLastUserFails(t *testing.T) {
	svc, err := users.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	list := svc.List()
	if len(list) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(list))
	}

	if err := svc.Delete(list[0].ID); !errors.Is(err, users.ErrLastUser) {
		t.Fatalf("expected ErrLastUser, got %v", err)
	}
}

func TestPinRoundTrip(t *testing.T) {
	svc, err := users.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	userID := svc.List()[0].ID

	if _, err := svc.SetPin(userID, "123"); !errors.Is(err, users.ErrPinTooShort) {
		t.Fatalf("expected ErrPinTooShort, got %v", err)
	}

	updated, err := svc.SetPin(userID, "4711")
	if err != nil {
		t.Fatalf("SetPin failed: %v", err)
	}
	if !updated.HasPin() {
		t.Fatal("expected hasPin after SetPin")
	}

	if err := svc.VerifyPin(userID, "4711"); err != nil {
		t.Fatalf("expected correct PIN to verify, got %v", err)
	}
	if err := svc.VerifyPin(userID, "0000"); !errors.Is(err, users.ErrPinInvalid) {
		t.Fatalf("expected ErrPinInvalid, got %v", err)
	}

	if _, err := svc.ClearPin(userID); err != nil {
		t.Fatalf("ClearPin failed: %v", err)
	}
	if err := svc.VerifyPin(userID, "anything"); err != nil {
		t.Fatalf("expected any PIN to pass without a hash, got %v", err)
	}
}

func TestPinSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	svc, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	userID := svc.List()[0].ID
	if _, err := svc.SetPin(userID, "4711"); err != nil {
		t.Fatalf("SetPin failed: %v", err)
	}

	reloaded, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if err := reloaded.VerifyPin(userID, "4711"); err != nil {
		t.Fatalf("expected PIN to survive a reload, got %v", err)
	}
}

func TestSetAvatarSniffsContentType(t *testing.T) {
	svc, err := users.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	userID := svc.List()[0].ID

	updated, err := svc.SetAvatar(userID, testPNG)
	if err != nil {
		t.Fatalf("SetAvatar failed: %v", err)
	}
	if updated.AvatarPath == "" {
		t.Fatal("expected avatar path to be recorded")
	}

	if _, err := svc.SetAvatar(userID, []byte("#!/bin/sh\nrm -rf /")); !errors.Is(err, users.ErrAvatarType) {
		t.Fatalf("expected ErrAvatarType for non-image bytes, got %v", err)
	}

	cleared, err := svc.ClearAvatar(userID)
	if err != nil {
		t.Fatalf("ClearAvatar failed: %v", err)
	}
	if cleared.AvatarPath != "" {
		t.Fatal("expected avatar path cleared")
	}
}

func TestSetAvatarUserNotFound(t *testing.T) {
	svc, err := users.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := svc.SetAvatar("nonexistent-user", testPNG); !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
