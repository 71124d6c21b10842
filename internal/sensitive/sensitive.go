// Package sensitive classifies a token as a UUID, API key, JWT, file name
// with a known extension, version string, path, or hash — anything that
// must never be run through layout conversion. See spec §4.B.
package sensitive

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("sensitive")

var (
	reUUID       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	reAPIKey     = regexp.MustCompile(`(?i)^(sk|pk|api|key|token|secret)_[A-Za-z0-9_]+$`)
	reVersion    = regexp.MustCompile(`^[vV][0-9]+$`)
	reWinPath    = regexp.MustCompile(`^[A-Za-z]:\\`)
	reIPv6Local  = regexp.MustCompile(`^::+[0-9]*$`)
	reHexHash    = regexp.MustCompile(`^[0-9a-f]{7,64}$`)
	reHashPrefix = regexp.MustCompile(`(?i)(sha256|sha1|sha512|sha384|md5|sha):[0-9a-fA-F]+`)
	reFileName   = regexp.MustCompile(`^([A-Za-z0-9_-]+)\.([A-Za-z0-9]+)$`)
	reCyrName    = regexp.MustCompile(`^([\p{Cyrillic}]+)\.([A-Za-z0-9]+)$`)
)

// knownExtensions is the closed set spec §4.B enumerates.
var knownExtensions = map[string]bool{
	"css": true, "js": true, "ts": true, "jsx": true, "tsx": true,
	"json": true, "yaml": true, "yml": true, "xml": true, "html": true,
	"htm": true, "py": true, "rb": true, "go": true, "rs": true,
	"swift": true, "kt": true, "java": true, "c": true, "cpp": true,
	"h": true, "hpp": true, "md": true, "txt": true, "csv": true,
	"sql": true, "sh": true, "bash": true, "zsh": true, "ps1": true,
	"bat": true, "cmd": true, "env": true, "ini": true, "toml": true,
	"conf": true, "cfg": true, "lock": true, "log": true,
}

// IsSensitive evaluates the nine predicates from spec §4.B in order and
// reports whether the first one wins.
func IsSensitive(word string) bool {
	if word == "" {
		return false
	}
	if reUUID.MatchString(word) {
		if _, err := uuid.Parse(word); err != nil {
			// Shape matched but RFC 4122 parsing failed (bad variant/
			// version nibble). The regex predicate is still authoritative
			// per spec — we only log the mismatch for diagnostics.
			log.Printf("uuid-shaped token failed strict parse: %q: %v", word, err)
		}
		return true
	}
	if reAPIKey.MatchString(word) {
		return true
	}
	if isJWT(word) {
		return true
	}
	if isKnownExtensionFile(word) {
		return true
	}
	if reVersion.MatchString(word) {
		return true
	}
	if reWinPath.MatchString(word) {
		return true
	}
	if reIPv6Local.MatchString(word) {
		return true
	}
	if len(word) >= 7 && len(word) <= 64 && reHexHash.MatchString(word) {
		return true
	}
	if reHashPrefix.MatchString(word) {
		return true
	}
	return false
}

func isJWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || !isBase64URLRun(p) {
			return false
		}
	}
	return true
}

func isBase64URLRun(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '=':
		default:
			return false
		}
	}
	return true
}

func isKnownExtensionFile(s string) bool {
	m := reFileName.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return knownExtensions[strings.ToLower(m[2])]
}

// CorrectedFilePath recognises a file path whose name was typed in
// Cyrillic while the extension stayed Latin (e.g. "зфслфпу.json"), and
// returns the corrected form with the name transliterated back, or "",
// false if s isn't shaped like one.
func CorrectedFilePath(s string) (string, bool) {
	m := reCyrName.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	ext := m[2]
	if !knownExtensions[strings.ToLower(ext)] {
		return "", false
	}
	name := layout.Convert(m[1], layout.Cyrillic, layout.Latin, true)
	return name + "." + ext, true
}
