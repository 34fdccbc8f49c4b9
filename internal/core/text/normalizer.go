// Package text 提供食材名稱與單位的純文字處理工具
package text

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pantry-recipes/internal/pkg/common"
)

// unicodeFractions 固定的 15 個分數字元
var unicodeFractions = map[rune]string{
	'½': "1/2",
	'⅓': "1/3",
	'⅔': "2/3",
	'¼': "1/4",
	'¾': "3/4",
	'⅕': "1/5",
	'⅖': "2/5",
	'⅗': "3/5",
	'⅘': "4/5",
	'⅙': "1/6",
	'⅚': "5/6",
	'⅛': "1/8",
	'⅜': "3/8",
	'⅝': "5/8",
	'⅞': "7/8",
}

// unitAbbreviations 常見縮寫對應的標準單位名稱
var unitAbbreviations = map[string]string{
	"tbsp":  "tablespoon",
	"tbsps": "tablespoon",
	"tbs":   "tablespoon",
	"tblsp": "tablespoon",
	"tsp":   "teaspoon",
	"tsps":  "teaspoon",
	"c":     "cup",
	"oz":    "ounce",
	"ozs":   "ounce",
	"lb":    "pound",
	"lbs":   "pound",
	"g":     "gram",
	"kg":    "kilogram",
	"ml":    "milliliter",
	"l":     "liter",
	"pt":    "pint",
	"qt":    "quart",
	"gal":   "gallon",
}

// 單位分類關鍵字，依 volume、weight、length 的順序檢查
var (
	volumeKeywords = []string{"cup", "tablespoon", "teaspoon", "milliliter", "liter", "litre", "pint", "quart", "gallon", "fluid", "tbsp", "tsp", "ml"}
	weightKeywords = []string{"gram", "kilogram", "ounce", "pound", "milligram", "kg", "lb", "oz", "mg"}
	lengthKeywords = []string{"inch", "centimeter", "millimeter", "meter", "cm", "mm"}
)

// Normalize 去除前後空白並轉小寫
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SubstituteUnicodeFractions 將分數字元替換為 n/d 形式，緊接數字時補一個空白
func SubstituteUnicodeFractions(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	var prev rune
	for _, r := range s {
		if frac, ok := unicodeFractions[r]; ok {
			if unicode.IsDigit(prev) {
				sb.WriteByte(' ')
			}
			sb.WriteString(frac)
		} else {
			sb.WriteRune(r)
		}
		prev = r
	}
	return sb.String()
}

// CanonicalUnitName 將縮寫轉為標準單位名稱，未知的單位只去掉結尾句點
func CanonicalUnitName(token string) string {
	key := strings.TrimSuffix(Normalize(token), ".")
	if canonical, ok := unitAbbreviations[key]; ok {
		return canonical
	}
	return key
}

// ClassifyUnitCategory 依關鍵字判斷單位分類
func ClassifyUnitCategory(name string) common.UnitCategory {
	n := Normalize(name)
	switch {
	case containsAny(n, volumeKeywords):
		return common.UnitCategoryVolume
	case containsAny(n, weightKeywords):
		return common.UnitCategoryWeight
	case containsAny(n, lengthKeywords):
		return common.UnitCategoryLength
	default:
		return common.UnitCategoryOther
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// FormatQuantity 四捨五入到小數點後兩位
func FormatQuantity(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatQuantityString 與 FormatQuantity 相同，整數不帶小數點
func FormatQuantityString(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

// FoldAccents 移除變音符號，例如 jalapeño → jalapeno
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// CollapseSpaces 合併連續空白
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
