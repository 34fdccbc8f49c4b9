// Package parser 將自由格式的食材文字解析為結構化的食材草稿
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/pkg/common"
)

var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)?`)
	leadingNumberPattern = regexp.MustCompile(`^[\d\s/.\-–]+`)
	edgePunctuation      = ",;:-–.&/ "
	danglingWords        = map[string]bool{"and": true, "or": true, "of": true, "&": true, "plus": true, "with": true}
)

// Parser 規則式食材解析器，可同時給多個 goroutine 使用
type Parser struct {
	vocab       *Vocabulary
	prepRe      *regexp.Regexp
	sizeRe      *regexp.Regexp
	fillerRe    *regexp.Regexp
	trailingRe  *regexp.Regexp
	leadingSet  map[string]bool
	trailingSet map[string]bool
}

// New 依詞表建立解析器，vocab 為 nil 時使用預設詞表
func New(vocab *Vocabulary) *Parser {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	p := &Parser{
		vocab:       vocab,
		prepRe:      wordListPattern(vocab.PreparationVerbs),
		sizeRe:      wordListPattern(vocab.SizeAdjectives),
		fillerRe:    wordListPattern(vocab.FillerWords),
		trailingRe:  wordListPattern(vocab.TrailingPhrases),
		leadingSet:  toSet(vocab.LeadingWords),
		trailingSet: toSet(vocab.TrailingPhrases),
	}
	return p
}

// wordListPattern 將詞表編成以字界錨定、不分大小寫的單一正規式，長詞優先
func wordListPattern(words []string) *regexp.Regexp {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

// Parse 解析多行食材文字，每個非空行都會產生一筆草稿
func (p *Parser) Parse(raw string) common.ParseResult {
	result := common.ParseResult{
		Ingredients: []common.ParsedIngredient{},
		Notes:       []string{},
	}

	block := text.SubstituteUnicodeFractions(raw)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if first, second, ok := p.splitAlternative(line); ok {
			line = first
			base := p.parseLine(first).Name
			result.Notes = append(result.Notes,
				fmt.Sprintf("Alternative ingredient: can use %s instead of %s", second, base))
		}

		result.Ingredients = append(result.Ingredients, p.parseLine(line))
	}

	return result
}

// ParseLine 解析單行食材
func (p *Parser) ParseLine(line string) common.ParsedIngredient {
	return p.parseLine(strings.TrimSpace(text.SubstituteUnicodeFractions(line)))
}

// splitAlternative 偵測 "A or B" 形式；B 若是三個字以內且含處理動詞，視為處理方式而非替代食材
func (p *Parser) splitAlternative(line string) (string, string, bool) {
	idx := strings.Index(strings.ToLower(line), " or ")
	if idx < 0 {
		return "", "", false
	}
	first := strings.TrimSpace(line[:idx])
	second := strings.Trim(strings.TrimSpace(line[idx+4:]), edgePunctuation)
	if first == "" || second == "" {
		return "", "", false
	}

	lowerSecond := strings.ToLower(second)
	if len(strings.Fields(second)) <= 3 && p.prepRe.MatchString(lowerSecond) {
		return "", "", false
	}
	// "salt, or to taste"
	if p.trailingSet[lowerSecond] || p.trailingSet["or "+lowerSecond] {
		return "", "", false
	}
	return strings.TrimRight(first, edgePunctuation), second, true
}

// parseLine 擷取數量、單位與名稱；失敗時以 1 whole 並對整行做名稱處理
func (p *Parser) parseLine(line string) common.ParsedIngredient {
	quantity, unit, rest, err := p.extract(line)
	if err != nil {
		common.LogDebug("Ingredient line fell back to default quantity",
			zap.String("line", line),
			zap.Error(err),
		)
		quantity, unit, rest = 1.0, common.DefaultUnitName, line
	}

	name, prep, size := p.cleanName(rest)
	if name == "" {
		name = fallbackName(rest, line)
	}

	return common.ParsedIngredient{
		Name:        name,
		Quantity:    text.FormatQuantity(quantity),
		UnitName:    unit,
		Preparation: strings.Join(prep, ", "),
		Size:        strings.Join(size, ", "),
	}
}

// extract 從行首擷取數量與單位，回傳剩餘的名稱文字
func (p *Parser) extract(line string) (float64, string, string, error) {
	tokens := strings.Fields(line)
	for len(tokens) > 0 && p.leadingSet[strings.ToLower(tokens[0])] {
		tokens = tokens[1:]
	}

	quantity := 1.0
	amt, err := readAmount(tokens)
	switch {
	case err == nil:
		// 四捨五入到兩位小數後仍須大於 0
		if text.FormatQuantity(amt.value) <= 0 {
			return 0, "", "", errInvalidQuantity
		}
		quantity = amt.value
		tokens = tokens[amt.consumed:]
	case err != errNoQuantity:
		return 0, "", "", err
	}

	unit := ""
	if amt.glued != "" {
		unit = p.lookupUnit(amt.glued)
		if unit == "" {
			unit = text.CanonicalUnitName(amt.glued)
		}
	}

	// "1 (14 ounce) can tomatoes"
	if len(tokens) > 0 && strings.HasPrefix(tokens[0], "(") {
		i := 0
		for i < len(tokens) && !strings.Contains(tokens[i], ")") {
			i++
		}
		if i < len(tokens) {
			tokens = tokens[i+1:]
		}
	}

	if unit == "" {
		var consumed int
		unit, consumed = p.readUnit(tokens)
		tokens = tokens[consumed:]
	}
	if unit == "" {
		unit = common.DefaultUnitName
	} else if len(tokens) > 0 && strings.ToLower(tokens[0]) == "of" {
		tokens = tokens[1:]
	}

	rest := strings.Join(tokens, " ")
	if strings.Trim(rest, edgePunctuation) == "" {
		return 0, "", "", fmt.Errorf("no ingredient name in %q", line)
	}
	return quantity, unit, rest, nil
}

// readUnit 讀取一或兩個 token 組成的單位
func (p *Parser) readUnit(tokens []string) (string, int) {
	if len(tokens) == 0 {
		return "", 0
	}
	first := cleanToken(tokens[0])
	if len(tokens) > 1 {
		second := cleanToken(tokens[1])
		if (first == "fl" || first == "fl." || first == "fluid") && p.lookupUnit(second) == "ounce" {
			return "fluid ounce", 2
		}
	}
	if u := p.lookupUnit(first); u != "" {
		return u, 1
	}
	return "", 0
}

func (p *Parser) lookupUnit(token string) string {
	return p.vocab.Units[strings.TrimSuffix(cleanToken(token), ".")]
}

func cleanToken(tok string) string {
	return strings.TrimRight(strings.ToLower(tok), ",;:")
}

// cleanName 名稱後處理：收集處理方式與大小、移除修飾語與附註
func (p *Parser) cleanName(raw string) (string, []string, []string) {
	name := strings.ToLower(raw)

	prep := collectMatches(p.prepRe, name)
	name = p.prepRe.ReplaceAllString(name, " ")

	size := collectMatches(p.sizeRe, name)
	name = p.sizeRe.ReplaceAllString(name, " ")

	name = p.fillerRe.ReplaceAllString(name, " ")
	name = parentheticalPattern.ReplaceAllString(name, " ")
	name = p.stripLeadingAmount(name)
	name = p.trailingRe.ReplaceAllString(name, " ")

	if idx := strings.Index(name, ","); idx >= 0 {
		tail := name[idx+1:]
		if len(strings.Fields(tail)) <= 3 && !strings.Contains(tail, ":") {
			name = name[:idx]
		}
	}

	return tidy(name), prep, size
}

// stripLeadingAmount 去掉開頭殘留的數字與其後的單位
func (p *Parser) stripLeadingAmount(name string) string {
	trimmed := strings.TrimSpace(name)
	stripped := strings.TrimSpace(leadingNumberPattern.ReplaceAllString(trimmed, ""))
	if stripped == trimmed {
		return name
	}
	tokens := strings.Fields(stripped)
	if unit, consumed := p.readUnit(tokens); unit != "" {
		tokens = tokens[consumed:]
		if len(tokens) > 0 && tokens[0] == "of" {
			tokens = tokens[1:]
		}
	}
	return strings.Join(tokens, " ")
}

// collectMatches 依出現順序收集不重複的詞
func collectMatches(re *regexp.Regexp, s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllString(s, -1) {
		m = strings.ToLower(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// tidy 合併空白、去掉兩端標點與懸空的連接詞
func tidy(name string) string {
	words := strings.Fields(name)
	for {
		changed := false
		for len(words) > 0 {
			w := strings.Trim(words[0], edgePunctuation)
			if w != "" && !danglingWords[w] {
				break
			}
			words = words[1:]
			changed = true
		}
		for len(words) > 0 {
			w := strings.Trim(words[len(words)-1], edgePunctuation)
			if w != "" && !danglingWords[w] {
				break
			}
			words = words[:len(words)-1]
			changed = true
		}
		if !changed {
			break
		}
	}
	out := strings.Join(words, " ")
	out = strings.Trim(out, edgePunctuation)
	return strings.ToLower(text.CollapseSpaces(out))
}

// fallbackName 名稱處理後為空時，保留原文以免整行消失
func fallbackName(rest, line string) string {
	for _, candidate := range []string{rest, line} {
		if n := strings.Trim(text.CollapseSpaces(strings.ToLower(candidate)), edgePunctuation); n != "" {
			return n
		}
	}
	return strings.ToLower(line)
}
