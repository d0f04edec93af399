package cipher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/scgreenhalgh/tubeexplode/internal/logger"
)

const (
	timestampDigits = 5
	identRe         = `[a-zA-Z0-9_$]+`
)

var log = logger.Component("cipher")

var timestampRegex = regexp.MustCompile(`\b(?:signatureTimestamp|sts)\b["']?\s*:\s*(\d+)`)

// Decipher-function shapes. Minifiers emit either an assigned function
// expression or a named declaration; both require that the single parameter
// is split into characters and rejoined on return, which needs a
// backreference on the parameter name and therefore regexp2.
var decipherFuncRegexes = []*regexp2.Regexp{
	// xy=function(a){a=a.split("");...;return a.join("")}
	regexp2.MustCompile(
		identRe+`\s*=\s*function\(\s*(`+identRe+`)\s*\)\s*\{\s*\1\s*=\s*\1\.split\([^)]*\);(.*?)return \1\.join\([^)]*\)\}`,
		regexp2.Singleline),
	// function xy(a){a=a.split("");...;return a.join("")}
	regexp2.MustCompile(
		`function\s+`+identRe+`\s*\(\s*(`+identRe+`)\s*\)\s*\{\s*\1\s*=\s*\1\.split\([^)]*\);(.*?)return \1\.join\([^)]*\)\}`,
		regexp2.Singleline),
}

var containerMethodRegex = regexp.MustCompile(
	`(` + identRe + `)\s*:\s*function\s*\(([^)]*)\)\s*\{([^{}]*)\}`)

// ExtractSignatureTimestamp scans the player script for a signature
// timestamp marker (the long property name or its "sts" abbreviation
// followed by a five digit integer) and returns its digit string. Absence
// is reported through the boolean, not an error.
func ExtractSignatureTimestamp(js string) (string, bool) {
	for _, m := range timestampRegex.FindAllStringSubmatch(js, -1) {
		if len(m[1]) == timestampDigits {
			return m[1], true
		}
	}
	return "", false
}

// Parse statically analyzes a player script and reconstructs its signature
// cipher as a Manifest. The script is treated purely as text; no part of it
// is ever executed. Each phase either finds what it is looking for or fails
// the whole parse with a phase-specific *Error, so a returned Manifest is
// always complete.
func Parse(js string) (*Manifest, error) {
	ts, ok := ExtractSignatureTimestamp(js)
	if !ok {
		return nil, NewError(ErrCodeTimestampNotFound, "signature timestamp not found")
	}

	param, body, ok := findDecipherFunc(js)
	if !ok {
		return nil, NewError(ErrCodeDecipherFunctionNotFound, "decipher function not found")
	}
	log.Debug("located decipher function", "param", param, "body_len", len(body))

	container, ok := findContainerName(body, param)
	if !ok {
		return nil, NewError(ErrCodeContainerNameNotFound, "container name not found")
	}

	containerBody, ok := extractContainerBody(js, container)
	if !ok {
		return nil, NewError(ErrCodeContainerDefinitionNotFound,
			"container definition not found", container)
	}

	symbols := classifyContainerMethods(containerBody)
	log.Debug("classified container methods", "container", container, "methods", len(symbols))

	ops := replayCalls(body, param, container, symbols)
	if len(ops) == 0 {
		return nil, NewError(ErrCodeNoOperationsFound, "no cipher operations found")
	}
	log.Debug("parsed cipher operations", "timestamp", ts, "ops", len(ops))

	return &Manifest{SignatureTimestamp: ts, Operations: ops}, nil
}

// findDecipherFunc tries both syntactic variants and returns the parameter
// name plus the statements between the split and the return-join.
func findDecipherFunc(js string) (param, body string, ok bool) {
	for _, re := range decipherFuncRegexes {
		m, err := re.FindStringMatch(js)
		if err != nil || m == nil {
			continue
		}
		return m.GroupByNumber(1).String(), m.GroupByNumber(2).String(), true
	}
	return "", "", false
}

// findContainerName captures the object name from the first
// container.method(param, N) call inside the decipher body. Both dot and
// bracket-string property access occur in the wild, and the integer
// argument is optional (reverse calls are often emitted without one).
func findContainerName(body, param string) (string, bool) {
	re := regexp.MustCompile(
		`(` + identRe + `)(?:\.` + identRe + `|\["[^"]+"\]|\['[^']+'\])\(` +
			regexp.QuoteMeta(param) + `\s*(?:,\s*\d+\s*)?\)`)
	m := re.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// extractContainerBody locates the object-literal assignment to name
// anywhere in the script and returns the text between its outer braces. The
// scan balances nested braces and ignores brace characters inside string
// literals, since container method bodies routinely contain both.
func extractContainerBody(js, name string) (string, bool) {
	assignRe := regexp.MustCompile(
		`(?:^|[\s;,{}()])` + regexp.QuoteMeta(name) + `\s*=\s*\{`)
	loc := assignRe.FindStringIndex(js)
	if loc == nil {
		return "", false
	}
	open := loc[1] - 1 // index of the opening brace

	var quote byte
	escaped := false
	depth := 0
	for i := open; i < len(js); i++ {
		c := js[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = quote != 0
		case '"', '\'', '`':
			if quote == 0 {
				quote = c
			} else if quote == c {
				quote = 0
			}
		case '{':
			if quote == 0 {
				depth++
			}
		case '}':
			if quote == 0 {
				depth--
				if depth == 0 {
					return js[open+1 : i], true
				}
			}
		}
	}
	return "", false
}

// classifyContainerMethods builds the transient symbol table mapping
// obfuscated method names to operation kinds. Classification is purely
// structural, first predicate wins; methods matching none of the three
// signatures are left out.
func classifyContainerMethods(containerBody string) map[string]Kind {
	symbols := make(map[string]Kind)
	for _, m := range containerMethodRegex.FindAllStringSubmatch(containerBody, -1) {
		name, params, fnBody := m[1], m[2], m[3]
		switch {
		case strings.Contains(fnBody, "%"):
			symbols[name] = KindSwap
		case strings.Contains(fnBody, ".splice("):
			symbols[name] = KindSlice
		case strings.Contains(fnBody, ".reverse()") && countParams(params) == 1:
			symbols[name] = KindReverse
		}
	}
	return symbols
}

func countParams(params string) int {
	n := 0
	for _, p := range strings.Split(params, ",") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// replayCalls re-scans the decipher body for container method calls in
// source order and maps each one through the symbol table. Calls to methods
// outside the table are not cipher-relevant and are skipped.
func replayCalls(body, param, container string, symbols map[string]Kind) []Operation {
	re := regexp.MustCompile(
		regexp.QuoteMeta(container) +
			`(?:\.(` + identRe + `)|\[(?:"([^"]+)"|'([^']+)')\])\(` +
			regexp.QuoteMeta(param) + `\s*(?:,\s*(\d+)\s*)?\)`)

	var ops []Operation
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		method := m[1]
		if method == "" {
			method = m[2]
		}
		if method == "" {
			method = m[3]
		}
		kind, ok := symbols[method]
		if !ok {
			continue
		}
		arg := 0
		if m[4] != "" {
			arg, _ = strconv.Atoi(m[4])
		}
		ops = append(ops, Operation{Kind: kind, Arg: arg})
	}
	return ops
}
