// Package explorer implements the site explorer: a bounded-depth BFS
// over same-host links starting from a root URL, in "spider" mode
// (link tree only) or "mirror" mode (link tree plus a rewritten static
// copy on disk).
package explorer

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/AndreLaranjeira/ProxyGate/pkg/bus"
	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
	"github.com/AndreLaranjeira/ProxyGate/pkg/httpmsg"
	"github.com/AndreLaranjeira/ProxyGate/pkg/logging"
	"github.com/AndreLaranjeira/ProxyGate/pkg/netdial"
)

// DefaultMirrorDepth is the bounded BFS depth used by Spider and Mirror
// when the caller doesn't supply one (§4.3: "depth 2 (mirror) or a
// user-configured small constant").
const DefaultMirrorDepth = 2

type mode int

const (
	modeSpider mode = iota
	modeMirror
)

type dialFunc func(ctx context.Context, host string) (net.Conn, netdial.ConnMetadata, error)

// Explorer runs site traversals independently of the proxy engine, in
// the goroutine that calls Spider, SpiderDepth or Mirror: each call
// blocks until the traversal ends, with no internal fan-out beyond
// concurrent fetches of one BFS level's siblings.
type Explorer struct {
	bus       *bus.Bus
	log       *logging.Logger
	dial      dialFunc
	ioTimeout time.Duration
}

// New returns an Explorer reporting through b.
func New(b *bus.Bus) *Explorer {
	return &Explorer{
		bus:       b,
		log:       logging.New("explorer", b),
		dial:      netdial.DialOrigin,
		ioTimeout: netdial.DefaultIOTimeout,
	}
}

// Spider crawls rootURL to DefaultMirrorDepth in spider mode: only
// <a href> candidates are followed, and nothing is written to disk.
func (e *Explorer) Spider(ctx context.Context, rootURL string) (*Node, error) {
	return e.run(ctx, rootURL, DefaultMirrorDepth, modeSpider, "")
}

// SpiderDepth is Spider with a caller-supplied maximum depth.
func (e *Explorer) SpiderDepth(ctx context.Context, rootURL string, depth int) (*Node, error) {
	return e.run(ctx, rootURL, depth, modeSpider, "")
}

// Mirror crawls rootURL to DefaultMirrorDepth in mirror mode: every
// href/src candidate is followed, fetched bodies are written under
// outputDir, and HTML references are rewritten to relative paths.
func (e *Explorer) Mirror(ctx context.Context, rootURL, outputDir string) (*Node, error) {
	return e.run(ctx, rootURL, DefaultMirrorDepth, modeMirror, outputDir)
}

func (e *Explorer) run(ctx context.Context, rootURL string, maxDepth int, m mode, outputDir string) (*Node, error) {
	absRoot := stripFragment(stripScheme(rootURL))
	host := hostOf(absRoot)

	root := &Node{URL: absRoot}
	visited := map[string]struct{}{normalizeForVisited(absRoot): {}}
	var mu sync.Mutex

	if err := e.fetch(ctx, root); err != nil {
		e.log.Errorf("fetch %s: %v", root.URL, err)
		return root, err
	}
	e.afterFetch(m, outputDir, root)
	e.publishTree(root)

	level := []*Node{root}
	for depth := 0; depth < maxDepth && len(level) > 0; depth++ {
		var nextLevel []*Node
		for _, parent := range level {
			for _, link := range candidateLinks(m, parent.Body) {
				abs := absoluteURL(link, host)
				if !sameHost(host, abs) {
					continue
				}

				key := normalizeForVisited(abs)
				mu.Lock()
				_, seen := visited[key]
				if !seen {
					visited[key] = struct{}{}
				}
				mu.Unlock()
				if seen {
					continue
				}

				child := &Node{URL: abs}
				parent.Children = append(parent.Children, child)
				nextLevel = append(nextLevel, child)
			}
		}
		if len(nextLevel) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, n := range nextLevel {
			n := n
			g.Go(func() error {
				if err := e.fetch(gctx, n); err != nil {
					e.log.Warnf("fetch %s: %v", n.URL, err)
					return nil
				}
				e.afterFetch(m, outputDir, n)
				return nil
			})
		}
		g.Wait()

		level = nextLevel
		e.publishTree(root)
	}

	return root, nil
}

func (e *Explorer) afterFetch(m mode, outputDir string, n *Node) {
	if m != modeMirror {
		return
	}
	if err := writeMirrorFile(outputDir, n); err != nil {
		e.log.Warnf("write mirror file for %s: %v", n.URL, err)
	}
}

func (e *Explorer) publishTree(root *Node) {
	e.bus.Publish(bus.Event{Kind: bus.UpdateSiteTree, Text: root.PrettyPrint()})
}

func candidateLinks(m mode, body []byte) []string {
	if m == modeMirror {
		return extractReferences(body)
	}
	return extractLinks(body)
}

// fetch opens a connection to node's host on port 80, sends a single
// GET per §4.3, and reads the response with the same length discipline
// as the proxy engine.
func (e *Explorer) fetch(ctx context.Context, node *Node) error {
	host := hostOf(node.URL)
	urlPath := pathOf(node.URL)
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}

	conn, _, err := e.dial(ctx, host)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", urlPath, host)
	if err := conn.SetWriteDeadline(time.Now().Add(e.ioTimeout)); err != nil {
		return protoerrors.NewIOError("write", err)
	}
	if _, err := conn.Write([]byte(req)); err != nil {
		return protoerrors.NewIOError("write", err)
	}

	msg, err := httpmsg.ReadMessage(conn, e.ioTimeout)
	if err != nil {
		return err
	}

	rawContentType, _ := msg.Headers.First("Content-Type")
	node.ContentType = primaryContentType(rawContentType)
	node.Body = decodeBody(msg.Body, rawContentType, e.log)
	return nil
}

// stripScheme trims a leading "http://" or "https://" from a root URL,
// the same resolution absoluteURL applies to every subsequently
// discovered link.
func stripScheme(u string) string {
	if m := schemeRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return u
}

var contentTypeParamRe = regexp.MustCompile(`^\s*([^;]+)`)
var charsetParamRe = regexp.MustCompile(`(?i)charset=([^\s;]+)`)

func primaryContentType(contentType string) string {
	m := contentTypeParamRe.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func charsetOf(contentType string) string {
	m := charsetParamRe.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], `"'`)
}

// decodeBody transcodes body to UTF-8 according to any charset named in
// contentType, so link extraction sees correct text. Bodies already in
// UTF-8, or whose charset isn't recognized, pass through unchanged.
func decodeBody(body []byte, contentType string, log *logging.Logger) []byte {
	charset := charsetOf(contentType)
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return body
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		log.Warnf("charset decode failed for %q: %v", charset, err)
		return body
	}
	return decoded
}
