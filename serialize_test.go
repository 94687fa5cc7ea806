package editorcore

import "testing"

func TestToJSONFromJSONRoundTripsDocumentText(t *testing.T) {
	s := buildTwoParagraphState()
	data, err := ToJSON(s)
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}

	got, err := FromJSON(data, nil)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	if rebuildDocumentText(got) != rebuildDocumentText(s) {
		t.Fatalf("round-tripped text = %q, want %q", rebuildDocumentText(got), rebuildDocumentText(s))
	}
	if got.Version() != CurrentSerializationVersion {
		t.Fatalf("version = %d, want %d", got.Version(), CurrentSerializationVersion)
	}
}

func TestFromJSONUnknownTypeTagIsAnError(t *testing.T) {
	data := []byte(`{"version":1,"root":{"type":"root","children":[{"type":"never-registered-widget"}]}}`)
	_, err := FromJSON(data, nil)
	if err == nil {
		t.Fatalf("expected an error for an unregistered node type tag")
	}
	ce, ok := err.(*CoreError)
	if !ok {
		t.Fatalf("error is not a *CoreError: %T", err)
	}
	if ce.Kind != KindSerialization {
		t.Fatalf("error kind = %v, want %v", ce.Kind, KindSerialization)
	}
}

func TestFromJSONRegisteredDecoratorTypeRoundTrips(t *testing.T) {
	RegisterNodeType(NodeTypeDescriptor{
		Type: "serialize-test-widget",
		New:  func() *DecoratorNode { return NewDecoratorNode("serialize-test-widget", nil, false) },
	})
	data := []byte(`{"version":1,"root":{"type":"root","children":[{"type":"serialize-test-widget","payload":{"count":3}}]}}`)
	state, err := FromJSON(data, nil)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	children := state.Root().Children()
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}
	n, _ := state.GetNode(children[0])
	dn, ok := n.(*DecoratorNode)
	if !ok {
		t.Fatalf("deserialized node is not a DecoratorNode: %T", n)
	}
	m, ok := dn.Payload().(map[string]any)
	if !ok || m["count"].(float64) != 3 {
		t.Fatalf("payload = %+v, want map with count=3", dn.Payload())
	}
}

func TestFromJSONMissingTypeTagIsAnError(t *testing.T) {
	data := []byte(`{"version":1,"root":{"type":"root","children":[{"text":"no type"}]}}`)
	_, err := FromJSON(data, nil)
	if err == nil {
		t.Fatalf("expected an error for a child with no type tag")
	}
}

func TestFromJSONAppliesMigrations(t *testing.T) {
	data := []byte(`{"version":0,"root":{"type":"root"}}`)
	migrations := []MigrationHandler{
		{FromVersion: 0, ToVersion: 1, Apply: func(doc *SerializedState) error { return nil }},
	}
	state, err := FromJSON(data, migrations)
	if err != nil {
		t.Fatalf("FromJSON with migration error: %v", err)
	}
	if state.Version() != 1 {
		t.Fatalf("version after migration = %d, want 1", state.Version())
	}
}

func TestFromJSONNoMigrationPathIsAnError(t *testing.T) {
	data := []byte(`{"version":0,"root":{"type":"root"}}`)
	_, err := FromJSON(data, nil)
	if err == nil {
		t.Fatalf("expected an error when no migration covers version 0")
	}
}
