package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern   = regexp.MustCompile(`^\d+(?:\.\d+)?$|^\.\d+$`)
	fractionPattern = regexp.MustCompile(`^(\d+)/(\d+)$`)
	rangePattern    = regexp.MustCompile(`^([\d./]+)[-–]([\d./]+)$`)
	gluedPattern    = regexp.MustCompile(`^([\d./]+)([a-zA-Z]+\.?)$`)

	errNoQuantity      = errors.New("no quantity")
	errInvalidQuantity = errors.New("invalid quantity")
)

var numberWords = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"half": 0.5, "dozen": 12,
}

// parseNumber 解析整數、小數或分數
func parseNumber(tok string) (float64, error) {
	switch {
	case numberPattern.MatchString(tok):
		return strconv.ParseFloat(tok, 64)
	case fractionPattern.MatchString(tok):
		m := fractionPattern.FindStringSubmatch(tok)
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return 0, errInvalidQuantity
		}
		return num / den, nil
	default:
		return 0, errNoQuantity
	}
}

// amount 數量擷取的結果
type amount struct {
	value    float64
	consumed int
	// glued 例如 "500g" 中緊接在數字後的單位
	glued string
}

// readAmount 從開頭的 token 讀出數量，支援帶分數、範圍、數字單字與黏著單位；
// 數量後接 "dozen" 時乘以 12
func readAmount(tokens []string) (amount, error) {
	amt, err := readBaseAmount(tokens)
	if err != nil || amt.glued != "" {
		return amt, err
	}
	if len(tokens) > amt.consumed && strings.ToLower(tokens[amt.consumed]) == "dozen" {
		amt.value *= 12
		amt.consumed++
	}
	return amt, nil
}

func readBaseAmount(tokens []string) (amount, error) {
	if len(tokens) == 0 {
		return amount{}, errNoQuantity
	}
	first := strings.ToLower(tokens[0])

	if v, ok := numberWords[first]; ok {
		// "half a cup"
		if first == "half" && len(tokens) > 1 && (tokens[1] == "a" || tokens[1] == "an") {
			return amount{value: v, consumed: 2}, nil
		}
		return amount{value: v, consumed: 1}, nil
	}

	if m := rangePattern.FindStringSubmatch(first); m != nil {
		v, err := parseNumber(m[1])
		if err != nil {
			return amount{}, err
		}
		return amount{value: v, consumed: 1}, nil
	}

	if m := gluedPattern.FindStringSubmatch(first); m != nil {
		v, err := parseNumber(m[1])
		if err != nil {
			return amount{}, err
		}
		return amount{value: v, consumed: 1, glued: m[2]}, nil
	}

	v, err := parseNumber(first)
	if err != nil {
		return amount{}, err
	}
	consumed := 1

	// 帶分數 "1 1/2"
	if len(tokens) > 1 && fractionPattern.MatchString(tokens[1]) && !strings.Contains(first, "/") {
		frac, err := parseNumber(tokens[1])
		if err != nil {
			return amount{}, err
		}
		v += frac
		consumed = 2
	}

	// 範圍 "1 to 2"、"1 - 2" 取下限
	if len(tokens) > consumed+1 && (tokens[consumed] == "to" || tokens[consumed] == "-" || tokens[consumed] == "–") {
		if _, err := parseNumber(tokens[consumed+1]); err == nil {
			consumed += 2
		}
	}

	return amount{value: v, consumed: consumed}, nil
}
