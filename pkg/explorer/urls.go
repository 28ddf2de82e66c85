package explorer

import (
	"path"
	"regexp"
	"strings"
)

var schemeRe = regexp.MustCompile(`^https?://(.*)$`)

// hostPathRe splits an already-scheme-stripped absolute link ("host/a/b")
// into its host and path portions the same way the original parser's
// getHost/getURL regexes do, quirks included: a root-relative value
// like "/a/b" yields an empty host, because `[^/]*` can match zero
// characters before the first slash.
var hostPathRe = regexp.MustCompile(`^([^/]*)/*(.*)$`)

// stripFragment removes everything from the first '#' onward.
func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// stripWWW removes a leading "www." prefix, if present.
func stripWWW(s string) string {
	return strings.TrimPrefix(s, "www.")
}

// hostOf returns the host portion of an absolute (scheme-stripped) link.
func hostOf(absoluteLink string) string {
	m := hostPathRe.FindStringSubmatch(absoluteLink)
	if m == nil {
		return ""
	}
	return m[1]
}

// pathOf returns the path portion of an absolute (scheme-stripped) link.
func pathOf(absoluteLink string) string {
	m := hostPathRe.FindStringSubmatch(absoluteLink)
	if m == nil {
		return absoluteLink
	}
	return m[2]
}

// absoluteURL resolves link, found on a page served by host, to this
// explorer's scheme-stripped absolute form ("host/path...").
func absoluteURL(link, host string) string {
	var resolved string
	switch {
	case schemeRe.MatchString(link):
		resolved = schemeRe.FindStringSubmatch(link)[1]
	case strings.HasPrefix(link, "/"):
		resolved = host + link
	case strings.HasPrefix(stripWWW(link), stripWWW(host)):
		resolved = link
	default:
		resolved = host + "/" + link
	}
	return stripFragment(resolved)
}

// sameHost reports whether absoluteLink's host matches host, modulo a
// leading "www.".
func sameHost(host, absoluteLink string) bool {
	return stripWWW(host) == stripWWW(hostOf(absoluteLink))
}

// normalizeForVisited is the key used to deduplicate the explorer's
// visited set: fragment-stripped, www-stripped.
func normalizeForVisited(absoluteLink string) string {
	return stripWWW(stripFragment(absoluteLink))
}

// basename returns the portion of p after its last '/', without
// collapsing a trailing slash the way path.Base does — "c/" has an
// empty basename, not "c", matching the original's filename-missing
// check.
func basename(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// withHTMLExtension appends "index.html" when p names no file, or
// ".html" when it names a file without an extension.
func withHTMLExtension(p string) string {
	base := basename(p)
	if base == "" {
		return p + "index.html"
	}
	if path.Ext(base) == "" {
		return p + ".html"
	}
	return p
}

// relativeURL computes the filesystem-relative href/src value to write
// into a mirrored page located at current (its url_path, slash-counted
// per §4.3 — see SPEC_FULL.md §9 for the known query-string and
// trailing-slash caveat this inherits from the original).
func relativeURL(link, current string) string {
	var result string
	if strings.HasPrefix(link, "/") {
		depth := strings.Count(current, "/")
		result = strings.Repeat("../", depth) + link[1:]
	} else {
		result = pathOf(link)
	}
	return withHTMLExtension(result)
}

// mirrorPath derives the on-disk path for a fetched page's url_path,
// per §4.3's mirror-write rule.
func mirrorPath(urlPath, contentType string) string {
	urlPath = strings.TrimPrefix(urlPath, "/")
	if urlPath == "" {
		return "index.html"
	}
	if basename(urlPath) == "" {
		return urlPath + "index.html"
	}
	if strings.EqualFold(contentType, "text/html") && path.Ext(basename(urlPath)) == "" {
		return urlPath + ".html"
	}
	return urlPath
}
