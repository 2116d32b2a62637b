package reference_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/reference"
)

type stubStore struct {
	edges []reference.Edge
}

func (s *stubStore) Upsert(_ context.Context, e reference.Edge) (reference.Edge, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	for i, existing := range s.edges {
		if existing.OriginalItemID == e.OriginalItemID {
			s.edges[i] = e
			return e, nil
		}
	}
	s.edges = append(s.edges, e)
	return e, nil
}

func (s *stubStore) ListForItem(_ context.Context, itemID string) ([]reference.Edge, error) {
	var out []reference.Edge
	for _, e := range s.edges {
		if e.OriginalItemID == itemID || e.NewReferenceID == itemID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) ListAll(context.Context) ([]reference.Edge, error) {
	return s.edges, nil
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	for i, e := range s.edges {
		if e.ID == id {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type stubDescriber struct{ known map[string]string }

func (d stubDescriber) Description(_ context.Context, itemID string) (string, error) {
	return d.known[itemID], nil
}

func TestDeclareResolveDeleteFlow(t *testing.T) {
	store := &stubStore{}
	svc := &reference.Service{
		Store:  store,
		Items:  stubDescriber{known: map[string]string{"B": "replacement widget"}},
		Logger: zerolog.Nop(),
	}
	ctx := context.Background()

	ab, err := svc.Declare(ctx, reference.DeclareInput{OriginalItemID: "A", NewReferenceID: "B", Source: "supplier", Attribution: "Acme"})
	if err != nil {
		t.Fatalf("declare A->B: %v", err)
	}
	if _, err := svc.Declare(ctx, reference.DeclareInput{OriginalItemID: "C", NewReferenceID: "B", Source: "user"}); err != nil {
		t.Fatalf("declare C->B: %v", err)
	}

	view, err := svc.Resolve(ctx, "A")
	if err != nil {
		t.Fatalf("resolve A: %v", err)
	}
	if view.State != reference.StateSuperseded || view.SuccessorDescription != "replacement widget" {
		t.Fatalf("expected superseded with description, got %+v", view)
	}

	if err := svc.Remove(ctx, ab.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	view, err = svc.Resolve(ctx, "A")
	if err != nil {
		t.Fatalf("resolve A after delete: %v", err)
	}
	if view.State != reference.StatePlain {
		t.Fatalf("A should be plain after delete, got %s", view.State)
	}

	b, err := svc.Resolve(ctx, "B")
	if err != nil {
		t.Fatalf("resolve B: %v", err)
	}
	if b.State != reference.StateSuccessor || len(b.Predecessors) != 1 || b.Predecessors[0].OriginalItemID != "C" {
		t.Fatalf("C->B should remain, got %+v", b)
	}
}

func TestDeclareRejectsSelfReference(t *testing.T) {
	svc := &reference.Service{Store: &stubStore{}, Logger: zerolog.Nop()}
	if _, err := svc.Declare(context.Background(), reference.DeclareInput{OriginalItemID: "A", NewReferenceID: " a ", Source: "user"}); err == nil {
		t.Fatal("self reference must be rejected")
	}
}

func TestResolveDanglingTarget(t *testing.T) {
	store := &stubStore{}
	svc := &reference.Service{Store: store, Items: stubDescriber{known: map[string]string{}}, Logger: zerolog.Nop()}
	ctx := context.Background()
	if _, err := svc.Declare(ctx, reference.DeclareInput{OriginalItemID: "A", NewReferenceID: "GHOST", Source: "supplier", Attribution: "Acme"}); err != nil {
		t.Fatalf("declare: %v", err)
	}
	view, err := svc.Resolve(ctx, "A")
	if err != nil {
		t.Fatalf("resolve must tolerate dangling target: %v", err)
	}
	if view.Successor == nil || view.Successor.NewReferenceID != "GHOST" || view.SuccessorDescription != "" {
		t.Fatalf("expected raw id with no description, got %+v", view)
	}
}
