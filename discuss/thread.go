package discuss

import (
	"cmp"
	"iter"
	"slices"
)

// MaxDepth is the deepest allowed reply; top-level comments are depth 0.
const MaxDepth = 3

type Node struct {
	Comment *Comment
	Depth   int
	Replies []*Node
}

type Thread struct {
	Roots []*Node
}

func compareComments(a, b *Comment) int {
	return cmp.Or(
		a.CreatedAt.Compare(b.CreatedAt),
		cmp.Compare(a.ID, b.ID),
	)
}

// redacted is a placeholder for a rejected comment that keeps its place in a
// thread without exposing its text.
func (c *Comment) redacted() *Comment {
	placeholder := *c
	placeholder.Content = ""

	return &placeholder
}

// BuildThread nests replies under their parents, starting from top. Replies
// whose parent is not part of the thread are dropped, as is anything deeper
// than MaxDepth. Siblings are ordered by creation time.
//
// Deleted comments stay as tombstones. Rejected comments keep their content
// for moderators and their author; other viewers get a blank placeholder when
// the comment still has replies, and nothing otherwise.
func BuildThread(top []*Comment, replies []*Comment, viewer Actor) *Thread {
	children := make(map[string][]*Comment)
	seen := make(map[string]struct{}, len(top)+len(replies))

	for _, reply := range replies {
		if reply.ParentID == nil {
			continue
		}

		if _, ok := seen[reply.ID]; ok {
			continue
		}

		seen[reply.ID] = struct{}{}
		children[*reply.ParentID] = append(children[*reply.ParentID], reply)
	}

	for _, siblings := range children {
		slices.SortFunc(siblings, compareComments)
	}

	thread := &Thread{Roots: make([]*Node, 0, len(top))}
	placed := make(map[string]struct{}, len(top)+len(replies))

	var build func(c *Comment, depth int) *Node

	build = func(c *Comment, depth int) *Node {
		placed[c.ID] = struct{}{}

		node := &Node{Comment: c, Depth: depth}

		if depth < MaxDepth {
			for _, child := range children[c.ID] {
				if _, ok := placed[child.ID]; ok {
					continue
				}

				if reply := build(child, depth+1); reply != nil {
					node.Replies = append(node.Replies, reply)
				}
			}
		}

		if c.Status == StatusRejected && !viewer.canSeeRejected(c) {
			if len(node.Replies) == 0 {
				return nil
			}

			node.Comment = c.redacted()
		}

		return node
	}

	for _, root := range top {
		if root.ParentID != nil {
			continue
		}

		if _, ok := placed[root.ID]; ok {
			continue
		}

		if node := build(root, 0); node != nil {
			thread.Roots = append(thread.Roots, node)
		}
	}

	return thread
}

// All yields every node of the thread in pre-order. Each call starts a new
// walk.
func (t *Thread) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		stack := make([]*Node, 0, len(t.Roots))

		for i := len(t.Roots) - 1; i >= 0; i-- {
			stack = append(stack, t.Roots[i])
		}

		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(node) {
				return
			}

			for i := len(node.Replies) - 1; i >= 0; i-- {
				stack = append(stack, node.Replies[i])
			}
		}
	}
}

// Len is the number of comments in the thread.
func (t *Thread) Len() int {
	n := 0

	for range t.All() {
		n++
	}

	return n
}
