package explorer

import (
	"os"
	"path/filepath"
	"strings"
)

// writeMirrorFile writes node's body under dir at its mirrorPath,
// rewriting href/src references for an HTML body first. Empty bodies
// are not written, per §4.3.
func writeMirrorFile(dir string, node *Node) error {
	if len(node.Body) == 0 {
		return nil
	}

	relPath := mirrorPath(pathOf(node.URL), node.ContentType)
	full := filepath.Join(dir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	body := node.Body
	if strings.EqualFold(node.ContentType, "text/html") {
		current := strings.TrimPrefix(pathOf(node.URL), "/")
		body = rewriteReferences(body, func(link string) string {
			return relativeURL(link, current)
		})
	}

	return os.WriteFile(full, body, 0o644)
}
