package strategy

import (
	"strings"
	"unicode"
)

// normalizeWords は小文字化し、文字・数字以外を空白にして前後に空白を付ける
func normalizeWords(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// minStemLength は語幹一致に使う最短の長さ
const minStemLength = 4

// containsPhrase はtextがphraseを部分文字列として含むか判定する（大文字小文字・記号の違いは無視）
// 母音で終わる語は語末の母音を除いた語幹でも一致とする（「pizza」と「Pizzeria」）
func containsPhrase(text, phrase string) bool {
	p := strings.TrimSpace(normalizeWords(phrase))
	if p == "" {
		return false
	}
	t := normalizeWords(text)
	if strings.Contains(t, p) {
		return true
	}
	if stem, ok := vowelStem(p); ok {
		return strings.Contains(t, stem)
	}
	return false
}

// vowelStem は語末の母音を1文字除いた語幹を返す
func vowelStem(p string) (string, bool) {
	r := []rune(p)
	if len(r) <= minStemLength || !strings.ContainsRune("aeio", r[len(r)-1]) {
		return "", false
	}
	return string(r[:len(r)-1]), true
}
