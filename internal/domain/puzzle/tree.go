package puzzle

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TreeNode is one node of a puzzle solution tree: a mapping from move keys to
// the replies that remain correct after that move. A node with no children is
// terminal — reaching it means the mating move has been played.
//
// Child keys keep their JSON insertion order, so the expected opponent reply
// ("first child") is deterministic even when a generator emitted siblings.
type TreeNode struct {
	children map[string]*TreeNode
	order    []string
}

// NewNode returns an empty (terminal) node.
func NewNode() *TreeNode {
	return &TreeNode{children: make(map[string]*TreeNode)}
}

// Add inserts child under key and returns the child, creating an empty node
// when child is nil. Re-adding an existing key replaces the child in place.
func (n *TreeNode) Add(key string, child *TreeNode) *TreeNode {
	if child == nil {
		child = NewNode()
	}
	if n.children == nil {
		n.children = make(map[string]*TreeNode)
	}
	if _, ok := n.children[key]; !ok {
		n.order = append(n.order, key)
	}
	n.children[key] = child
	return child
}

// IsTerminal reports whether n is a node with zero children. A nil node is
// not terminal: it means "no data", not "puzzle solved".
func (n *TreeNode) IsTerminal() bool {
	return n != nil && len(n.order) == 0
}

// Child looks up the subtree reached by playing key.
func (n *TreeNode) Child(key string) (*TreeNode, bool) {
	if n == nil {
		return nil, false
	}
	child, ok := n.children[key]
	return child, ok
}

// FirstChildMove returns the single expected reply at this node, or "" when
// the node has no children. When a tree holds several siblings the first one
// in insertion order wins.
func (n *TreeNode) FirstChildMove() string {
	if n == nil || len(n.order) == 0 {
		return ""
	}
	return n.order[0]
}

// AllChildrenTerminal reports whether the tree has no depth beyond this ply,
// i.e. every child is a mating move.
func (n *TreeNode) AllChildrenTerminal() bool {
	if n == nil {
		return false
	}
	for _, key := range n.order {
		if !n.children[key].IsTerminal() {
			return false
		}
	}
	return true
}

// ChildMoves returns the child keys in insertion order.
func (n *TreeNode) ChildMoves() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// UnmarshalJSON decodes the nested-object tree format, keeping key order and
// rejecting keys that are not move keys.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	return n.decode(dec)
}

func (n *TreeNode) decode(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("solution tree node must be a JSON object, got %v", tok)
	}

	n.children = make(map[string]*TreeNode)
	n.order = nil

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("solution tree key must be a string, got %v", keyTok)
		}
		if _, _, _, err := DecodeMoveKey(key); err != nil {
			return fmt.Errorf("solution tree key %q: %w", key, err)
		}

		child := NewNode()
		if err := child.decode(dec); err != nil {
			return err
		}
		n.Add(key, child)
	}

	// consume the closing '}'
	_, err = dec.Token()
	return err
}

// MarshalJSON writes the nested-object format with children in insertion order.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range n.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		childJSON, err := json.Marshal(n.children[key])
		if err != nil {
			return nil, err
		}
		buf.Write(childJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
