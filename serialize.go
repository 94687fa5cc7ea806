package editorcore

import (
	"sort"

	json "github.com/goccy/go-json"
)

// CurrentSerializationVersion is stamped into every freshly-serialized
// state; ToJSON never emits anything older.
const CurrentSerializationVersion = 1

// SerializedNode is the wire representation of any node variant
// (spec §6.2). Fields unused by a given Type are omitted by the zero
// value / `omitempty` and ignored on parse.
type SerializedNode struct {
	Type      string           `json:"type"`
	Children  []SerializedNode `json:"children,omitempty"`
	Direction string           `json:"direction,omitempty"`

	Indent       int  `json:"indent,omitempty"`
	CanIndent    bool `json:"canIndent,omitempty"`
	CanInsertTab bool `json:"canInsertTab,omitempty"`
	IsInline     bool `json:"isInline,omitempty"`
	Preamble     string `json:"preamble,omitempty"`

	Text   string `json:"text,omitempty"`
	Format uint16 `json:"format,omitempty"`
	Style  string `json:"style,omitempty"`
	Mode   string `json:"mode,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`

	Grid map[string]any `json:"grid,omitempty"`
}

// SerializedState is the top-level document envelope: { "version":
// <int>, "root": <SerializedElementNode> } (spec §6.2).
type SerializedState struct {
	Version int            `json:"version"`
	Root    SerializedNode `json:"root"`
}

// MigrationHandler rewrites a SerializedState produced at FromVersion
// into one valid at ToVersion. Parse applies every handler whose
// FromVersion matches the document's current version, advancing
// Version each time (spec §6.2).
type MigrationHandler struct {
	FromVersion int
	ToVersion   int
	Apply       func(*SerializedState) error
}

func directionString(d Direction) string {
	switch d {
	case DirLTR:
		return "ltr"
	case DirRTL:
		return "rtl"
	default:
		return ""
	}
}

func parseDirection(s string) Direction {
	switch s {
	case "ltr":
		return DirLTR
	case "rtl":
		return DirRTL
	default:
		return DirNone
	}
}

func textModeString(m TextMode) string {
	switch m {
	case ModeToken:
		return "token"
	case ModeSegmented:
		return "segmented"
	default:
		return "normal"
	}
}

func parseTextMode(s string) TextMode {
	switch s {
	case "token":
		return ModeToken
	case "segmented":
		return ModeSegmented
	default:
		return ModeNormal
	}
}

// ToJSON serializes s canonically: every Elemental's children are
// already caller-ordered so no key-sort is needed there, but the
// encoder itself (goccy/go-json) is configured to sort map keys,
// which only matters for GridSelection's opaque payload and a
// DecoratorNode's JSON-marshaled payload.
func ToJSON(s *EditorState) ([]byte, error) {
	root := s.Root()
	serialized, err := serializeElementLike(s, root.Key(), root.Children(), "root", directionString(root.Direction()))
	if err != nil {
		return nil, wrapSerializationError(err, "serializing root")
	}
	doc := SerializedState{Version: CurrentSerializationVersion, Root: serialized}
	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, wrapSerializationError(err, "marshaling document")
	}
	return buf, nil
}

func serializeElementLike(s *EditorState, key NodeKey, children []NodeKey, typ, dir string) (SerializedNode, error) {
	out := SerializedNode{Type: typ, Direction: dir}
	for _, childKey := range children {
		childNode, ok := s.GetNode(childKey)
		if !ok {
			return out, newInvariantViolation("child %q of %q missing from state", childKey, key)
		}
		sn, err := serializeNode(s, childNode)
		if err != nil {
			return out, err
		}
		out.Children = append(out.Children, sn)
	}
	return out, nil
}

func serializeNode(s *EditorState, n Node) (SerializedNode, error) {
	switch v := n.(type) {
	case *RootNode:
		return serializeElementLike(s, v.Key(), v.Children(), "root", directionString(v.Direction()))
	case *ElementNode:
		sn, err := serializeElementLike(s, v.Key(), v.Children(), v.Type(), directionString(v.Direction()))
		if err != nil {
			return sn, err
		}
		sn.Indent = v.Indent()
		sn.CanIndent = v.CanIndent()
		sn.CanInsertTab = v.CanInsertTab()
		sn.IsInline = v.IsInline()
		sn.Preamble = v.Preamble()
		return sn, nil
	case *TextNode:
		return SerializedNode{
			Type:   "text",
			Text:   v.Text(),
			Format: uint16(v.Format()),
			Style:  v.Style(),
			Mode:   textModeString(v.Mode()),
		}, nil
	case *LineBreakNode:
		return SerializedNode{Type: "linebreak"}, nil
	case *DecoratorNode:
		sn := SerializedNode{Type: v.Type(), IsInline: v.IsInline()}
		if v.Payload() != nil {
			raw, err := json.Marshal(v.Payload())
			if err != nil {
				return sn, wrapSerializationError(err, "marshaling decorator payload for %q", v.Key())
			}
			sn.Payload = raw
		}
		return sn, nil
	case *PlaceholderNode:
		return SerializedNode{Type: "placeholder"}, nil
	default:
		return SerializedNode{}, newError(KindSerialization, false, "unknown node type %T for key %q", v, n.Key())
	}
}

// FromJSON parses data into a fresh EditorState, applying migrations
// in order until the document's version matches
// CurrentSerializationVersion. An unregistered Type in the document is
// reported as a KindSerialization error naming the offending tag
// (spec §3.1 Guarantees).
func FromJSON(data []byte, migrations []MigrationHandler) (*EditorState, error) {
	var doc SerializedState
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wrapSerializationError(err, "parsing document")
	}

	sortedMigrations := append([]MigrationHandler(nil), migrations...)
	sort.Slice(sortedMigrations, func(i, j int) bool {
		return sortedMigrations[i].FromVersion < sortedMigrations[j].FromVersion
	})

	for changed := true; changed; {
		changed = false
		for _, m := range sortedMigrations {
			if doc.Version == m.FromVersion {
				if err := m.Apply(&doc); err != nil {
					return nil, wrapSerializationError(err, "applying migration %d->%d", m.FromVersion, m.ToVersion)
				}
				doc.Version = m.ToVersion
				changed = true
			}
		}
	}

	if doc.Version != CurrentSerializationVersion {
		return nil, newError(KindSerialization, false, "document version %d has no path to %d", doc.Version, CurrentSerializationVersion)
	}

	state := NewEditorState()
	state.version = doc.Version
	root := state.Root()
	children, err := deserializeChildren(state, doc.Root)
	if err != nil {
		return nil, err
	}
	root.setChildren(children)
	root.SetDirection(parseDirection(doc.Root.Direction))
	return state, nil
}

func deserializeChildren(state *EditorState, sn SerializedNode) ([]NodeKey, error) {
	keys := make([]NodeKey, 0, len(sn.Children))
	for _, child := range sn.Children {
		n, err := deserializeNode(state, child)
		if err != nil {
			return nil, err
		}
		state.nodes.Set(n)
		keys = append(keys, n.Key())
	}
	return keys, nil
}

func deserializeNode(state *EditorState, sn SerializedNode) (Node, error) {
	switch sn.Type {
	case "text":
		n := NewTextNode(sn.Text)
		n.SetFormat(FormatFlag(sn.Format))
		n.SetStyle(sn.Style)
		n.SetMode(parseTextMode(sn.Mode))
		n.setKey(mintNodeKey())
		return n, nil
	case "linebreak":
		n := NewLineBreakNode()
		n.setKey(mintNodeKey())
		return n, nil
	case "placeholder":
		n := NewPlaceholderNode()
		n.setKey(mintNodeKey())
		return n, nil
	case "paragraph", "h1", "h2", "h3", "h4", "h5", "h6", "quote", "listitem":
		el := &ElementNode{
			baseNode:     baseNode{typ: sn.Type},
			indent:       sn.Indent,
			canIndent:    sn.CanIndent,
			canInsertTab: sn.CanInsertTab,
			isInline:     sn.IsInline,
			preamble:     sn.Preamble,
			postamble:    "\n",
		}
		el.setKey(mintNodeKey())
		el.SetDirection(parseDirection(sn.Direction))
		children, err := deserializeChildren(state, sn)
		if err != nil {
			return nil, err
		}
		el.setChildren(children)
		return el, nil
	case "":
		return nil, newError(KindSerialization, false, "node missing a type tag")
	default:
		if _, registered := LookupNodeType(sn.Type); !registered {
			return nil, newError(KindSerialization, false, "unknown node type %q", sn.Type)
		}
		var payload any
		if len(sn.Payload) > 0 {
			if err := json.Unmarshal(sn.Payload, &payload); err != nil {
				return nil, wrapSerializationError(err, "decoding decorator payload for type %q", sn.Type)
			}
		}
		n := NewDecoratorNode(sn.Type, payload, sn.IsInline)
		n.setKey(mintNodeKey())
		return n, nil
	}
}
