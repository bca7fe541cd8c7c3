package identity

import (
	"context"
	"testing"
)

func TestWithUserRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), User{ID: "user-1", Role: RoleTherapist})

	u, ok := FromContext(ctx)
	if !ok {
		t.Fatalf("expected user in context")
	}
	if u.ID != "user-1" || u.Role != RoleTherapist {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no user in empty context")
	}
}

func TestFromContextEmptyID(t *testing.T) {
	ctx := WithUser(context.Background(), User{})
	if _, ok := FromContext(ctx); ok {
		t.Fatalf("expected empty user id to be rejected")
	}
}
