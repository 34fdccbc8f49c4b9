package text

import "strings"

// esStems 去掉 es 後仍需保留的字尾，與 Pluralize 的規則對應
var esStems = []string{"ch", "sh", "ss", "x", "z", "o"}

// Singularize 推導單數形式，依序處理 ies、es、s
func Singularize(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "es") && hasAnySuffix(strings.TrimSuffix(w, "es"), esStems):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"):
		return w
	case strings.HasSuffix(w, "s") && len(w) > 1:
		return strings.TrimSuffix(w, "s")
	default:
		return w
	}
}

// Pluralize 推導複數形式
func Pluralize(w string) string {
	switch {
	case w == "":
		return w
	case strings.HasSuffix(w, "y") && len(w) > 1 && !isVowel(w[len(w)-2]):
		return strings.TrimSuffix(w, "y") + "ies"
	case hasAnySuffix(w, []string{"ch", "sh", "ss", "x", "z"}):
		return w + "es"
	default:
		return w + "s"
	}
}

// Inflections 回傳單數、複數以及直接增減 s 的變化，排除與原字相同者
func Inflections(w string) []string {
	var out []string
	seen := map[string]bool{w: true}
	candidates := []string{Singularize(w), Pluralize(w), w + "s"}
	if strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		candidates = append(candidates, strings.TrimSuffix(w, "s"))
	}
	for _, v := range candidates {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func hasAnySuffix(w string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(w, s) {
			return true
		}
	}
	return false
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}
