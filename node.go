// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package editorcore

import "github.com/google/uuid"

// NodeKey uniquely identifies a node within a state lineage (spec
// §3.1). Keys are stable across clones of the same lineage: cloning a
// state never mints new keys for untouched nodes.
type NodeKey string

// RootKey is the constant key of the single Root node every state has.
const RootKey NodeKey = "root"

// NodeKind is the sum-type tag distinguishing the six node variants
// (spec §3.1). Richer node types (HeadingNode, QuoteNode, ListItemNode,
// ...) are ElementNode variants distinguished by their Type string, not
// by NodeKind — see the registered-nodes table in RegisterNodeType.
type NodeKind uint8

const (
	KindRoot NodeKind = iota
	KindElement
	KindText
	KindLineBreak
	KindDecorator
	KindPlaceholder
)

func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindLineBreak:
		return "linebreak"
	case KindDecorator:
		return "decorator"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Direction is a node's text direction.
type Direction uint8

const (
	DirNone Direction = iota
	DirLTR
	DirRTL
)

// TextMode controls how a TextNode may be split, merged, or partially
// selected (spec §3.1).
type TextMode uint8

const (
	ModeNormal TextMode = iota
	ModeToken
	ModeSegmented
)

// FormatFlag is a bit of the text format bitmask (spec §6.2).
type FormatFlag uint16

const (
	FormatBold FormatFlag = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
)

// Has reports whether every bit in other is set in f.
func (f FormatFlag) Has(other FormatFlag) bool { return f&other == other }

// Node is the capability vtable every variant implements (design notes
// §9: "avoid deep inheritance ... consumers dispatch on the type tag").
// Methods that mutate identity are unexported: callers never rebind a
// node's key or parent directly, only through NodeMap operations that
// keep the tree's invariants intact.
type Node interface {
	Key() NodeKey
	Kind() NodeKind
	Type() string
	Parent() (NodeKey, bool)

	setKey(NodeKey)
	setParent(key NodeKey, ok bool)
	clone() Node
}

// Elemental is implemented by node kinds that own an ordered child-key
// sequence (spec §3.1: Root and Element).
type Elemental interface {
	Node
	Children() []NodeKey
	setChildren([]NodeKey)
}

// Inlineable is implemented by node kinds the reconciler may place
// inside a single line (text, line break, decorator, and any Element
// explicitly marked inline).
type Inlineable interface {
	IsInline() bool
}

// baseNode carries the fields common to every variant.
type baseNode struct {
	key       NodeKey
	parent    NodeKey
	hasParent bool
	typ       string
}

func (b *baseNode) Key() NodeKey                  { return b.key }
func (b *baseNode) setKey(k NodeKey)               { b.key = k }
func (b *baseNode) Parent() (NodeKey, bool)         { return b.parent, b.hasParent }
func (b *baseNode) setParent(k NodeKey, ok bool)    { b.parent, b.hasParent = k, ok }
func (b *baseNode) Type() string                    { return b.typ }

// RootNode is the single per-state container; its key is always RootKey.
type RootNode struct {
	baseNode
	children []NodeKey
	dir      Direction
}

// NewRootNode constructs the root. Callers never need this directly;
// NewEditorState builds one automatically.
func NewRootNode() *RootNode {
	n := &RootNode{baseNode: baseNode{key: RootKey, typ: "root"}}
	return n
}

func (n *RootNode) Kind() NodeKind       { return KindRoot }
func (n *RootNode) Children() []NodeKey  { return n.children }
func (n *RootNode) setChildren(c []NodeKey) { n.children = c }
func (n *RootNode) Direction() Direction { return n.dir }
func (n *RootNode) SetDirection(d Direction) { n.dir = d }

func (n *RootNode) clone() Node {
	c := *n
	c.children = append([]NodeKey(nil), n.children...)
	return &c
}

// ElementNode is a block or inline container (paragraph, heading,
// quote, list item, ...). The concrete subtype is carried in Type();
// capability flags (CanIndent, CanInsertTab, inline-ness) and the
// preamble/postamble contributed to the rendered buffer (spec §6.4)
// are set by the constructor for that subtype.
type ElementNode struct {
	baseNode
	children []NodeKey

	indent       int
	dir          Direction
	canIndent    bool
	canInsertTab bool
	isInline     bool

	preamble            string
	preambleSpecialLen  int
	postamble           string
}

func (n *ElementNode) Kind() NodeKind          { return KindElement }
func (n *ElementNode) Children() []NodeKey     { return n.children }
func (n *ElementNode) setChildren(c []NodeKey) { n.children = c }
func (n *ElementNode) Indent() int             { return n.indent }
func (n *ElementNode) SetIndent(i int)         { n.indent = i }
func (n *ElementNode) Direction() Direction    { return n.dir }
func (n *ElementNode) SetDirection(d Direction) { n.dir = d }
func (n *ElementNode) CanIndent() bool         { return n.canIndent }
func (n *ElementNode) CanInsertTab() bool      { return n.canInsertTab }
func (n *ElementNode) IsInline() bool          { return n.isInline }
func (n *ElementNode) Preamble() string        { return n.preamble }
func (n *ElementNode) PreambleSpecialLen() int { return n.preambleSpecialLen }
func (n *ElementNode) Postamble() string       { return n.postamble }

func (n *ElementNode) clone() Node {
	c := *n
	c.children = append([]NodeKey(nil), n.children...)
	return &c
}

// NewParagraphNode builds a block-level paragraph element: no
// preamble, a single line-separator postamble.
func NewParagraphNode() *ElementNode {
	return &ElementNode{
		baseNode:  baseNode{typ: "paragraph"},
		canIndent: true,
		postamble: "\n",
	}
}

// NewHeadingNode builds a heading element, structurally identical to a
// paragraph but tagged with its level: "h1" for level 1 or lower, "h2"
// for level 2, and "h3" for level 3 or higher.
func NewHeadingNode(level int) *ElementNode {
	tag := "h3"
	switch {
	case level <= 1:
		tag = "h1"
	case level == 2:
		tag = "h2"
	case level >= 3:
		tag = "h3"
	}
	return &ElementNode{
		baseNode:  baseNode{typ: tag},
		canIndent: true,
		postamble: "\n",
	}
}

// NewQuoteNode builds a blockquote element.
func NewQuoteNode() *ElementNode {
	return &ElementNode{
		baseNode:  baseNode{typ: "quote"},
		canIndent: true,
		postamble: "\n",
	}
}

// NewListItemNode builds a list-item element whose preamble is the
// rendered bullet/number marker. The whole marker (its rune count) is
// counted as "special" (spec §6.4): the caret may never land inside
// it.
func NewListItemNode(marker string) *ElementNode {
	return &ElementNode{
		baseNode:           baseNode{typ: "listitem"},
		canIndent:          true,
		preamble:           marker,
		preambleSpecialLen: len([]rune(marker)),
		postamble:          "\n",
	}
}

// NewInlineContainerNode builds an inline element (e.g. a link) with
// no preamble/postamble of its own.
func NewInlineContainerNode(typ string) *ElementNode {
	return &ElementNode{baseNode: baseNode{typ: typ}, isInline: true}
}

// TextNode is a leaf carrying a Unicode string, a format mask, a style
// hash, and a mode.
type TextNode struct {
	baseNode
	text   string
	format FormatFlag
	style  string
	mode   TextMode
}

// NewTextNode builds a normal-mode text leaf with s as its content.
func NewTextNode(s string) *TextNode {
	return &TextNode{baseNode: baseNode{typ: "text"}, text: s}
}

func (n *TextNode) Kind() NodeKind    { return KindText }
func (n *TextNode) IsInline() bool    { return true }
func (n *TextNode) Text() string      { return n.text }
func (n *TextNode) SetText(s string)  { n.text = s }
func (n *TextNode) Format() FormatFlag { return n.format }
func (n *TextNode) SetFormat(f FormatFlag) { n.format = f }
func (n *TextNode) Style() string     { return n.style }
func (n *TextNode) SetStyle(s string) { n.style = s }
func (n *TextNode) Mode() TextMode    { return n.mode }
func (n *TextNode) SetMode(m TextMode) { n.mode = m }

// IsToken reports whether this node is atomic: it cannot be split,
// merged, or partially selected (spec §3.1).
func (n *TextNode) IsToken() bool { return n.mode == ModeToken }

// TextLength returns the Unicode scalar length of the node's text,
// the unit RangeCacheItem.TextLength and Point offsets are measured in.
func (n *TextNode) TextLength() int { return len([]rune(n.text)) }

func (n *TextNode) clone() Node {
	c := *n
	return &c
}

// LineBreakNode renders a single line separator inside an element.
type LineBreakNode struct{ baseNode }

func NewLineBreakNode() *LineBreakNode {
	return &LineBreakNode{baseNode{typ: "linebreak"}}
}
func (n *LineBreakNode) Kind() NodeKind { return KindLineBreak }
func (n *LineBreakNode) IsInline() bool { return true }
func (n *LineBreakNode) clone() Node    { c := *n; return &c }

// DecoratorNode is a host-owned inline or block object (e.g. an
// image). It is opaque to text content but occupies exactly one
// character slot in the rendered buffer (spec §3.1, §6.4).
type DecoratorNode struct {
	baseNode
	payload  any
	isInline bool
}

func NewDecoratorNode(typ string, payload any, inline bool) *DecoratorNode {
	return &DecoratorNode{baseNode: baseNode{typ: typ}, payload: payload, isInline: inline}
}

func (n *DecoratorNode) Kind() NodeKind { return KindDecorator }
func (n *DecoratorNode) IsInline() bool { return n.isInline }
func (n *DecoratorNode) Payload() any   { return n.payload }
func (n *DecoratorNode) SetPayload(p any) { n.payload = p }
func (n *DecoratorNode) clone() Node    { c := *n; return &c }

// PlaceholderNode is a zero-text leaf used to represent structural
// positions (spec §3.1).
type PlaceholderNode struct{ baseNode }

func NewPlaceholderNode() *PlaceholderNode {
	return &PlaceholderNode{baseNode{typ: "placeholder"}}
}
func (n *PlaceholderNode) Kind() NodeKind { return KindPlaceholder }
func (n *PlaceholderNode) clone() Node    { c := *n; return &c }

// GetChildren returns n's child keys, or nil if n is not Elemental.
func GetChildren(n Node) []NodeKey {
	if e, ok := n.(Elemental); ok {
		return e.Children()
	}
	return nil
}

// IsInline reports whether n should be laid out inline. Elements
// default to block-level unless explicitly constructed as inline.
func IsInline(n Node) bool {
	if i, ok := n.(Inlineable); ok {
		return i.IsInline()
	}
	return false
}

// mintNodeKey returns a fresh, process-wide-unique key for a node
// created without caller-supplied identity (by a transform or by
// insert_nodes, spec §4.7).
func mintNodeKey() NodeKey {
	return NodeKey(uuid.NewString())
}
