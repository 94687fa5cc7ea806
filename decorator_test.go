package editorcore

import "testing"

func TestRegisterAndLookupNodeType(t *testing.T) {
	RegisterNodeType(NodeTypeDescriptor{
		Type: "poll-widget",
		New:  func() *DecoratorNode { return NewDecoratorNode("poll-widget", nil, false) },
	})
	d, ok := LookupNodeType("poll-widget")
	if !ok {
		t.Fatalf("registered type not found")
	}
	if d.Type != "poll-widget" {
		t.Fatalf("descriptor Type = %q", d.Type)
	}
	if _, ok := LookupNodeType("never-registered-xyz"); ok {
		t.Fatalf("unregistered type unexpectedly found")
	}
}

func TestDecoratorCacheNeedsRenderFreshKey(t *testing.T) {
	c := NewDecoratorCache()
	if !c.NeedsRender("d1", "payload") {
		t.Fatalf("fresh key should need render")
	}
	c.Record("d1", "payload")
	if c.NeedsRender("d1", "payload") {
		t.Fatalf("unchanged payload should not need render")
	}
	if !c.NeedsRender("d1", "other") {
		t.Fatalf("changed payload should need render")
	}
}

func TestDecoratorCacheForget(t *testing.T) {
	c := NewDecoratorCache()
	c.Record("d1", 1)
	c.Forget("d1")
	if !c.NeedsRender("d1", 1) {
		t.Fatalf("forgotten key should need render again")
	}
}

type equalerPayload struct{ v int }

func (e equalerPayload) Equal(other any) bool {
	o, ok := other.(equalerPayload)
	return ok && o.v == e.v
}

func TestDecoratorCacheUsesEqualer(t *testing.T) {
	c := NewDecoratorCache()
	c.Record("d1", equalerPayload{v: 1})
	if c.NeedsRender("d1", equalerPayload{v: 1}) {
		t.Fatalf("Equaler reported equal payload as stale")
	}
	if !c.NeedsRender("d1", equalerPayload{v: 2}) {
		t.Fatalf("Equaler reported different payload as fresh")
	}
}

func TestPayloadsEqualNeverPanicsOnUncomparable(t *testing.T) {
	c := NewDecoratorCache()
	c.Record("d1", map[string]int{"a": 1})
	if !c.NeedsRender("d1", map[string]int{"a": 1}) {
		t.Fatalf("uncomparable payload should always report stale, not panic or match")
	}
}
