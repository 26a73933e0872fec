package store

import (
	"context"
	"path/filepath"
	"testing"

	"dealflow/internal/collab"
)

func newTestStore(t *testing.T) *CardStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cards.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *CardStore, card Card) *Card {
	t.Helper()
	created, err := s.CreateCard(context.Background(), card)
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}
	return created
}

func assertCode(t *testing.T, err error, want collab.Code) {
	t.Helper()
	code, ok := collab.CodeOf(err)
	if !ok {
		t.Fatalf("expected typed collaborator error, got %v", err)
	}
	if code != want {
		t.Errorf("got code %q, want %q", code, want)
	}
}

func TestCreateAndGetCard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, Card{
		CustomerName: "Jane Mitchell",
		Company:      "Acme Corp",
		Email:        "jane@acme.com",
	})
	if created.ID == 0 {
		t.Fatal("card was not assigned an id")
	}
	if created.Status != StatusToReach {
		t.Errorf("default status = %q, want %q", created.Status, StatusToReach)
	}
	if created.Priority != PriorityMedium {
		t.Errorf("default priority = %q, want %q", created.Priority, PriorityMedium)
	}

	got, err := s.GetCard(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if got.CustomerName != "Jane Mitchell" || got.Email != "jane@acme.com" {
		t.Errorf("card round trip mangled: %+v", got)
	}
}

func TestCreateCardValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCard(ctx, Card{})
	assertCode(t, err, collab.CodeInvalidInput)

	_, err = s.CreateCard(ctx, Card{CustomerName: "X", Status: "archived"})
	assertCode(t, err, collab.CodeInvalidInput)
}

func TestGetCardNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCard(context.Background(), 999)
	assertCode(t, err, collab.CodeNotFound)
}

func TestListCardsByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, Card{CustomerName: "A", Status: StatusToReach})
	mustCreate(t, s, Card{CustomerName: "B", Status: StatusInProgress})
	mustCreate(t, s, Card{CustomerName: "C", Status: StatusInProgress})

	all, err := s.ListCards(ctx, "")
	if err != nil {
		t.Fatalf("ListCards failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d cards, want 3", len(all))
	}

	inProgress, err := s.ListCards(ctx, StatusInProgress)
	if err != nil {
		t.Fatalf("ListCards(in_progress) failed: %v", err)
	}
	if len(inProgress) != 2 {
		t.Errorf("got %d cards, want 2", len(inProgress))
	}

	_, err = s.ListCards(ctx, "archived")
	assertCode(t, err, collab.CodeInvalidInput)
}

func TestUpdateCard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := mustCreate(t, s, Card{CustomerName: "Jane Mitchell"})
	card.Company = "Acme Corp"
	card.Status = StatusInProgress

	updated, err := s.UpdateCard(ctx, *card)
	if err != nil {
		t.Fatalf("UpdateCard failed: %v", err)
	}
	if updated.Company != "Acme Corp" || updated.Status != StatusInProgress {
		t.Errorf("update not applied: %+v", updated)
	}

	missing := *card
	missing.ID = 999
	_, err = s.UpdateCard(ctx, missing)
	assertCode(t, err, collab.CodeNotFound)
}

func TestDeleteCard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := mustCreate(t, s, Card{CustomerName: "Jane Mitchell"})
	if err := s.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard failed: %v", err)
	}
	_, err := s.GetCard(ctx, card.ID)
	assertCode(t, err, collab.CodeNotFound)

	assertCode(t, s.DeleteCard(ctx, card.ID), collab.CodeNotFound)
}

func TestTransitionStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := mustCreate(t, s, Card{CustomerName: "Jane Mitchell"})

	if err := s.TransitionStatus(ctx, card.ID, StatusReachedOut); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	got, _ := s.GetCard(ctx, card.ID)
	if got.Status != StatusReachedOut {
		t.Errorf("status = %q, want %q", got.Status, StatusReachedOut)
	}

	assertCode(t, s.TransitionStatus(ctx, card.ID, "archived"), collab.CodeInvalidInput)
	assertCode(t, s.TransitionStatus(ctx, 999, StatusFollowUp), collab.CodeNotFound)
}

func TestLookupContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jane := mustCreate(t, s, Card{CustomerName: "Jane Mitchell", Email: "jane@acme.com"})
	mustCreate(t, s, Card{CustomerName: "John Smith"})
	mustCreate(t, s, Card{CustomerName: "John Sturgis"})

	t.Run("by numeric id", func(t *testing.T) {
		contact, err := s.LookupContact(ctx, "1")
		if err != nil {
			t.Fatalf("LookupContact failed: %v", err)
		}
		if contact.ID != jane.ID || contact.Email != "jane@acme.com" {
			t.Errorf("wrong contact: %+v", contact)
		}
	})

	t.Run("by exact name case-insensitive", func(t *testing.T) {
		contact, err := s.LookupContact(ctx, "jane mitchell")
		if err != nil {
			t.Fatalf("LookupContact failed: %v", err)
		}
		if contact.Name != "Jane Mitchell" {
			t.Errorf("got %q", contact.Name)
		}
	})

	t.Run("by unique prefix", func(t *testing.T) {
		contact, err := s.LookupContact(ctx, "Jane")
		if err != nil {
			t.Fatalf("LookupContact failed: %v", err)
		}
		if contact.Name != "Jane Mitchell" {
			t.Errorf("got %q", contact.Name)
		}
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := s.LookupContact(ctx, "John S")
		assertCode(t, err, collab.CodeInvalidInput)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := s.LookupContact(ctx, "Nobody")
		assertCode(t, err, collab.CodeNotFound)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := s.LookupContact(ctx, "  ")
		assertCode(t, err, collab.CodeInvalidInput)
	})
}

func TestSearchContacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, Card{CustomerName: "Jane Mitchell", Company: "Acme Corp", Email: "jane@acme.com"})
	mustCreate(t, s, Card{CustomerName: "John Smith", Company: "TechCorp"})
	mustCreate(t, s, Card{CustomerName: "Emily Davis", Company: "Marketing Pro"})

	byCompany, err := s.SearchContacts(ctx, "corp", 10)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(byCompany) != 2 {
		t.Errorf("got %d matches, want 2", len(byCompany))
	}

	byEmail, err := s.SearchContacts(ctx, "acme.com", 10)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].Name != "Jane Mitchell" {
		t.Errorf("email search mangled: %+v", byEmail)
	}

	none, err := s.SearchContacts(ctx, "zzz", 10)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %+v", none)
	}

	_, err = s.SearchContacts(ctx, "", 10)
	assertCode(t, err, collab.CodeInvalidInput)
}

func TestNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := mustCreate(t, s, Card{CustomerName: "Jane Mitchell"})

	if _, err := s.CreateNote(ctx, card.ID, "Called, left voicemail"); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	if _, err := s.CreateNote(ctx, card.ID, "Demo booked"); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	notes, err := s.Notes(ctx, card.ID)
	if err != nil {
		t.Fatalf("Notes failed: %v", err)
	}
	if len(notes) != 2 || notes[0] != "Called, left voicemail" {
		t.Errorf("notes mangled: %+v", notes)
	}

	_, err = s.CreateNote(ctx, 999, "orphan")
	assertCode(t, err, collab.CodeNotFound)

	_, err = s.CreateNote(ctx, card.ID, "   ")
	assertCode(t, err, collab.CodeInvalidInput)
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if n == 0 {
		t.Fatal("seed inserted nothing into an empty store")
	}

	again, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}
	if again != 0 {
		t.Errorf("seed must be a no-op on a populated store, inserted %d", again)
	}

	contact, err := s.LookupContact(ctx, "Jane Mitchell")
	if err != nil {
		t.Fatalf("seeded contact missing: %v", err)
	}
	if contact.Email != "jane@acme.com" {
		t.Errorf("seeded contact mangled: %+v", contact)
	}
}
