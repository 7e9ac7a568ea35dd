package domain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type variableRule struct {
	variable Variable
	keywords []string
}

// variableRules is ordered; on a position tie the earlier rule wins.
var variableRules = []variableRule{
	{VariableTemperature, []string{"temp", "temps", "temperature", "temperatures", "thermal"}},
	{VariableSalinity, []string{"sal", "salinity", "salt", "psal", "saltiness"}},
	{VariablePressure, []string{"pres", "pressure", "pressures"}},
	{VariableOxygen, []string{"oxygen", "o2", "doxy", "dissolved oxygen"}},
}

type operationRule struct {
	operation Operation
	phrases   []string
}

// operationRules is priority ordered: the first rule with any phrase present wins.
// "temperature vs depth" asks for a profile, so that rule sits ahead of COMPARE.
var operationRules = []operationRule{
	{OperationProfile, []string{"vs depth", "versus depth", "against depth"}},
	{OperationCompare, []string{"compare", "comparison", "comparing", "versus", "vs"}},
	{OperationMax, []string{"max", "maximum", "highest", "warmest", "peak", "saltiest"}},
	{OperationMin, []string{"min", "minimum", "lowest", "coldest", "freshest"}},
	{OperationAverage, []string{"average", "mean", "avg"}},
	{OperationProfile, []string{"depth profile", "vertical profile", "profile", "profiles", "show me"}},
	{OperationExplain, []string{"explain", "define", "what is", "what s", "what are", "meaning", "tell me about"}},
}

var (
	chartKeywords = []string{"show", "plot", "graph", "chart", "visualize", "visualise", "draw"}
	tableKeywords = []string{"table", "tabulate", "list"}
	placeMarkers  = []string{"near", "off", "around"}
	idMarkers     = []string{"float", "platform", "wmo"}
	depthUnits    = map[string]bool{
		"m": true, "meter": true, "meters": true, "metre": true, "metres": true, "depth": true, "dbar": true,
	}
)

var depthPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(metres|meters|metre|meter|dbar|depth|m)\b`)

// Extractor turns free text into an Intent. The zero value is not usable;
// build one with NewExtractor.
type Extractor struct {
	tolerance float64
}

// NewExtractor returns an Extractor that applies tolerance (metres) around
// any depth target. Non-positive tolerances fall back to DefaultDepthTolerance.
func NewExtractor(tolerance float64) *Extractor {
	if tolerance <= 0 {
		tolerance = DefaultDepthTolerance
	}
	return &Extractor{tolerance: tolerance}
}

// Extract interprets text with the default depth tolerance.
func Extract(text string) Intent {
	return NewExtractor(DefaultDepthTolerance).Extract(text)
}

// Extract is total: every input, including empty or nonsense text, yields an Intent.
func (e *Extractor) Extract(text string) Intent {
	norm := normalize(text)
	tokens := strings.Fields(norm)

	intent := Intent{
		Variable:       VariableUnknown,
		DepthTolerance: e.tolerance,
		RawText:        text,
	}

	intent.Variables = matchVariables(tokens)
	if len(intent.Variables) > 0 {
		intent.Variable = intent.Variables[0]
	}

	intent.Operation = matchOperation(tokens)
	switch {
	case intent.Variable == VariableUnknown:
		intent.Operation = OperationExplain
	case intent.Operation == "":
		intent.Operation = OperationAverage
	}

	if d, ok := matchDepth(norm); ok {
		intent.DepthTarget = &d
	} else if indexOfPhrase(tokens, "surface") >= 0 {
		zero := 0.0
		intent.DepthTarget = &zero
	}

	intent.ProfileIDs = matchProfileIDs(tokens)

	if r, ok := matchRegion(tokens); ok {
		intent.Region = &r
	} else {
		intent.Place = matchPlace(tokens)
	}

	intent.WantsChart = containsAny(tokens, chartKeywords)
	intent.WantsTable = containsAny(tokens, tableKeywords)
	return intent
}

// normalize lower-cases text and turns every rune that is not a letter or
// digit into a space, keeping decimal points between digits.
func normalize(text string) string {
	runes := []rune(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(runes))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		case r == ',' && isThousandsSeparator(runes, i):
			// "1,000 m" reads as 1000.
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// isThousandsSeparator reports whether the comma at i sits between a digit
// and exactly three more digits.
func isThousandsSeparator(runes []rune, i int) bool {
	if i == 0 || i+3 >= len(runes) || !unicode.IsDigit(runes[i-1]) {
		return false
	}
	for k := 1; k <= 3; k++ {
		if !unicode.IsDigit(runes[i+k]) {
			return false
		}
	}
	return i+4 == len(runes) || !unicode.IsDigit(runes[i+4])
}

// indexOfPhrase returns the token position where phrase starts, or -1.
func indexOfPhrase(tokens []string, phrase string) int {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return -1
	}
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func containsAny(tokens, phrases []string) bool {
	for _, p := range phrases {
		if indexOfPhrase(tokens, p) >= 0 {
			return true
		}
	}
	return false
}

// matchVariables returns every mentioned variable ordered by first mention.
func matchVariables(tokens []string) []Variable {
	type hit struct {
		pos  int
		rule int
	}
	hits := make([]hit, 0, len(variableRules))
	for ri, rule := range variableRules {
		first := -1
		for _, kw := range rule.keywords {
			if pos := indexOfPhrase(tokens, kw); pos >= 0 && (first < 0 || pos < first) {
				first = pos
			}
		}
		if first >= 0 {
			hits = append(hits, hit{pos: first, rule: ri})
		}
	}
	// Insertion sort keeps rule order on equal positions.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]Variable, 0, len(hits))
	for _, h := range hits {
		out = append(out, variableRules[h.rule].variable)
	}
	return out
}

func matchOperation(tokens []string) Operation {
	for _, rule := range operationRules {
		if containsAny(tokens, rule.phrases) {
			return rule.operation
		}
	}
	return ""
}

func matchDepth(norm string) (float64, bool) {
	m := depthPattern.FindStringSubmatch(norm)
	if m == nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// matchProfileIDs finds float identifiers: long digit runs that are not
// depths, argo_<n> tokens, and any number following an id marker word.
func matchProfileIDs(tokens []string) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for i, tok := range tokens {
		next := ""
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}
		switch {
		case tok == "argo" && isDigits(next):
			add("ARGO_" + next)
		case containsString(idMarkers, tok) && isDigits(next):
			add(next)
		case isDigits(tok) && len(tok) >= 5 && !depthUnits[next]:
			if i > 0 && tokens[i-1] == "argo" {
				continue
			}
			add(tok)
		}
	}
	return ids
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// matchRegion returns the region whose phrase is longest among those present.
// Equal lengths resolve to the earliest position in the text.
func matchRegion(tokens []string) (Region, bool) {
	best := -1
	bestLen, bestPos := 0, 0
	for i, rule := range regionRules {
		pos := indexOfPhrase(tokens, rule.phrase)
		if pos < 0 {
			continue
		}
		n := len(strings.Fields(rule.phrase))
		if best < 0 || n > bestLen || (n == bestLen && pos < bestPos) {
			best, bestLen, bestPos = i, n, pos
		}
	}
	if best < 0 {
		return Region{}, false
	}
	return regionRules[best].region, true
}

// placeStopWords end a place phrase: "near Chennai at 500 m" yields "chennai".
var placeStopWords = map[string]bool{
	"at": true, "in": true, "for": true, "with": true, "and": true, "from": true,
	"between": true, "below": true, "above": true, "during": true, "on": true,
	"show": true, "plot": true, "as": true, "using": true, "surface": true, "bottom": true,
}

func matchPlace(tokens []string) string {
	for i, tok := range tokens {
		if !containsString(placeMarkers, tok) {
			continue
		}
		var words []string
		for _, w := range tokens[i+1:] {
			// Numbers belong to depths or ids ("around 1000m"), never to places.
			if placeStopWords[w] || startsWithDigit(w) {
				break
			}
			if w == "the" && len(words) == 0 {
				continue
			}
			words = append(words, w)
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
	return ""
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
