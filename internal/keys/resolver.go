package keys

import "strings"

// Resolver maps stored keys to publicly fetchable URLs for a configured
// base domain.
type Resolver struct {
	BaseDomain string
	Scheme     Scheme
}

// URL produces a fetchable URL for a stored key and derivative class.
// A leading slash on the key is stripped; the class's prefix folder is
// inserted when the key does not already carry it.
func (r Resolver) URL(key string, class Class) string {
	key = strings.TrimPrefix(key, "/")

	prefix := r.Scheme.Prefix(class)
	if !strings.HasPrefix(key, prefix+"/") {
		key = prefix + "/" + key
	}

	return strings.TrimSuffix(r.BaseDomain, "/") + "/" + key
}

// SwapClass rewrites a key or URL of one derivative class into the
// other by replacing the prefix token. Matching is exact on the
// configured token; anything not shaped like one of our URLs is
// returned unchanged, so externally hosted images fail open.
func (r Resolver) SwapClass(s string, to Class) string {
	from := ClassOriginal
	if to == ClassOriginal {
		from = ClassThumbnail
	}

	fromTok := r.Scheme.Prefix(from)
	toTok := r.Scheme.Prefix(to)

	// Bare key: the prefix token is the first segment.
	if strings.HasPrefix(s, fromTok+"/") {
		return toTok + s[len(fromTok):]
	}

	// URL: the token appears as an interior path segment.
	if i := strings.Index(s, "/"+fromTok+"/"); i >= 0 {
		return s[:i+1] + toTok + s[i+1+len(fromTok):]
	}

	return s
}
