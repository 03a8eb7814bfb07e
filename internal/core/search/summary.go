package search

import "strings"

// maxSummaryRunes は抽出型要約の最大文字数です
const maxSummaryRunes = 200

// ExtractSummary は本文の先頭から要点となる文を抽出します。
// 生成モデルが使えない環境でのフォールバックです。
func ExtractSummary(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return ""
	}

	sentences := splitSentences(content)
	var builder strings.Builder
	for i, sentence := range sentences {
		if i >= 2 {
			break
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(sentence)
	}

	summary := builder.String()
	runes := []rune(summary)
	if len(runes) > maxSummaryRunes {
		summary = string(runes[:maxSummaryRunes]) + "…"
	}
	return summary
}

// splitSentences は文末記号で本文を分割します
func splitSentences(content string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	for _, r := range content {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '.', '!', '?':
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
