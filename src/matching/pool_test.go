package matching

import (
	"slices"
	"testing"
)

func TestPoolKeepsInsertionOrder(t *testing.T) {
	p := newPool()
	p.Set("a", "c1")
	p.Set("b", "c2")
	p.Set("c", "c3")
	p.Set("a", "c4")

	if got := p.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("keys = %v", got)
	}
	if id, _ := p.Get("a"); id != "c4" {
		t.Errorf("a = %s, want c4", id)
	}

	p.Delete("b")
	p.Set("b", "c5")
	if got := p.Keys(); !slices.Equal(got, []string{"a", "c", "b"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestPoolRemoveChecksOwner(t *testing.T) {
	p := newPool()
	p.Set("a", "c1")

	p.Remove("a", "c2")
	if !p.Has("a") {
		t.Fatal("Remove dropped an entry owned by another connection")
	}
	p.Remove("a", "c1")
	if p.Has("a") || p.Len() != 0 {
		t.Error("Remove kept the entry")
	}
}

func TestPoolDeleteConn(t *testing.T) {
	p := newPool()
	p.Set("a", "c1")
	p.Set("b", "c2")
	p.Set("c", "c1")
	p.Set("d", "c1")

	p.DeleteConn("c1")
	if got := p.Keys(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestPoolEachStops(t *testing.T) {
	p := newPool()
	for _, u := range []string{"a", "b", "c"} {
		p.Set(u, ConnID("c-"+u))
	}
	var seen []string
	p.Each(func(userID string, _ ConnID) bool {
		seen = append(seen, userID)
		return userID != "b"
	})
	if !slices.Equal(seen, []string{"a", "b"}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestParseResponse(t *testing.T) {
	if ParseResponse("accept") != ResponseAccept {
		t.Error("accept")
	}
	for _, s := range []string{"decline", "", "ACCEPT", "yes"} {
		if ParseResponse(s) != ResponseDecline {
			t.Errorf("%q should decline", s)
		}
	}
}

func TestIdentityPrefersAuthenticatedUser(t *testing.T) {
	anon := newConnection("c1", "", testTime)
	if got := anon.identity("x"); got != "x" {
		t.Errorf("anonymous identity = %q", got)
	}
	authed := newConnection("c2", "me", testTime)
	if got := authed.identity("someone-else"); got != "me" {
		t.Errorf("authenticated identity = %q", got)
	}
}
