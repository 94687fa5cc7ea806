// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package editorcore implements the core engine of a Lexical-style
// rich-text editor: a hierarchical node tree (EditorState), a range
// cache and Fenwick index mapping model positions to rendered-buffer
// offsets, a reconciler that projects state transitions onto an
// attributed-text buffer (the Attributed Store, internal/rope), and a
// transactional update driver tying the three together.
//
// The package does not render text, negotiate input methods, or talk
// to a clipboard or filesystem; it publishes edits to a Host (see
// host.go) and expects the host to own the platform text widget,
// native selection, and decorator view hierarchy.
package editorcore
