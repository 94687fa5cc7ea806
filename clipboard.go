package editorcore

import (
	"strings"

	json "github.com/goccy/go-json"
)

// ClipboardNodesMIME is the MIME type under which a copy/cut payload
// carries its lexical-nodes fragment (spec §6.3).
const ClipboardNodesMIME = "application/x-lexical-nodes"

// ClipboardPayload is what copy/cut produce and paste consumes (spec
// §6.3): application/x-lexical-nodes carries the selected nodes
// verbatim, text/plain and text/rtf are best-effort projections for
// pasting into a non-lexical target.
type ClipboardPayload struct {
	Nodes     []byte // application/x-lexical-nodes: JSON array of SerializedNode
	PlainText string // text/plain
	RTF       string // text/rtf, best-effort
}

// BuildClipboardPayload implements copy/cut's payload construction
// (spec §6.3). Only a same-text-node range is supported directly,
// matching the scope RemoveText already covers; a collapsed
// selection yields an empty payload.
func BuildClipboardPayload(state *EditorState) (*ClipboardPayload, error) {
	sel, ok := state.Selection().(*RangeSelection)
	if !ok || sel.IsCollapsed() {
		return &ClipboardPayload{}, nil
	}
	a, f := sel.Anchor, sel.Focus
	if a.Key != f.Key || a.Kind != PointText {
		return nil, newInvariantViolation("copy across distinct nodes is not yet supported")
	}
	lo, hi := a.Offset, f.Offset
	if lo > hi {
		lo, hi = hi, lo
	}
	n, ok := state.GetNode(a.Key)
	if !ok {
		return nil, newInvariantViolation("copy source %q is detached", a.Key)
	}
	tn, ok := n.(*TextNode)
	if !ok {
		return nil, newInvariantViolation("copy source %q is not a text node", a.Key)
	}
	runes := []rune(tn.Text())
	if hi > len(runes) {
		hi = len(runes)
	}
	text := string(runes[lo:hi])

	frag := SerializedNode{
		Type:   "text",
		Text:   text,
		Format: uint16(tn.Format()),
		Style:  tn.Style(),
		Mode:   textModeString(tn.Mode()),
	}
	nodesJSON, err := json.Marshal([]SerializedNode{frag})
	if err != nil {
		return nil, wrapSerializationError(err, "marshaling clipboard fragment")
	}

	return &ClipboardPayload{
		Nodes:     nodesJSON,
		PlainText: text,
		RTF:       plainTextToRTF(text),
	}, nil
}

// plainTextToRTF produces a minimal, unstyled RTF document: enough
// for a target that only reads text/rtf to recover the plain text
// with its paragraph breaks.
func plainTextToRTF(s string) string {
	var b strings.Builder
	b.WriteString(`{\rtf1\ansi `)
	for _, r := range s {
		switch r {
		case '\\', '{', '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\par `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("}")
	return b.String()
}

// PasteClipboardPayload implements paste (spec §6.3): prefers
// application/x-lexical-nodes, falling back to text/plain split on
// blank-line paragraph separators. Multi-paragraph content is landed
// by composing insert_text and insert_paragraph exactly as a user
// typing it would, so the result obeys the same block-splitting rules
// as direct editing. The caret ends at the end of the inserted
// content.
func PasteClipboardPayload(ctx *UpdateContext, sel *RangeSelection, p *ClipboardPayload) error {
	if len(p.Nodes) > 0 {
		var frags []SerializedNode
		if err := json.Unmarshal(p.Nodes, &frags); err == nil {
			var text strings.Builder
			for _, f := range frags {
				if f.Type == "text" {
					text.WriteString(f.Text)
				}
			}
			if text.Len() > 0 {
				return pasteParagraphs(ctx, sel, strings.Split(text.String(), "\n\n"))
			}
		}
	}
	if p.PlainText == "" {
		return nil
	}
	return pasteParagraphs(ctx, sel, strings.Split(p.PlainText, "\n\n"))
}

func pasteParagraphs(ctx *UpdateContext, sel *RangeSelection, paragraphs []string) error {
	if len(paragraphs) == 0 {
		return nil
	}
	if err := InsertText(ctx, sel, paragraphs[0]); err != nil {
		return err
	}
	for _, para := range paragraphs[1:] {
		cur, ok := ctx.State().Selection().(*RangeSelection)
		if !ok {
			return newInvariantViolation("paste lost its range selection")
		}
		if err := InsertParagraph(ctx, cur); err != nil {
			return err
		}
		cur, ok = ctx.State().Selection().(*RangeSelection)
		if !ok {
			return newInvariantViolation("paste lost its range selection")
		}
		if err := InsertText(ctx, cur, para); err != nil {
			return err
		}
	}
	return nil
}
