package rigging

// Node is one position in a tree of attachable nodes. ParentNode returns nil
// at a root. Implementations must be comparable (pointer receivers, as
// usual).
type Node interface {
	ParentNode() Node
}

// IsNodeAttached reports whether n is a strict descendant of root: a node is
// not attached to itself. Walks the parent chain and tolerates cycles.
func IsNodeAttached(root, n Node) bool {
	if root == nil || n == nil {
		return false
	}
	seen := make(map[Node]struct{})
	for p := n.ParentNode(); p != nil; p = p.ParentNode() {
		if p == root {
			return true
		}
		if _, ok := seen[p]; ok {
			return false
		}
		seen[p] = struct{}{}
	}
	return false
}
