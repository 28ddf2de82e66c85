package explorer

import "strings"

// Node is one entry of the site tree built by a traversal: the absolute
// URL it was fetched from (scheme-stripped, "host/path" form), its
// fetched body and content type (empty for the synthetic root before a
// fetch, or for a node that failed to fetch), and its same-host children.
type Node struct {
	URL         string
	ContentType string
	Body        []byte
	Children    []*Node
}

// PrettyPrint renders the tree as indented text, one URL per line, in
// the traversal's visit order — the explorer.Node analogue of the
// original spider's recursive tree-printer.
func (n *Node) PrettyPrint() string {
	var b strings.Builder
	n.prettyPrint(&b, 0)
	return b.String()
}

func (n *Node) prettyPrint(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.URL)
	b.WriteByte('\n')
	for _, child := range n.Children {
		child.prettyPrint(b, depth+1)
	}
}
