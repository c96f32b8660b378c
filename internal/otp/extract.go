package otp

import (
	"regexp"
	"sort"

	"aliasmail/backend/internal/domain"
)

// 候选数字前后参与关键词判定的窗口大小（字符数）
const keywordWindow = 40

var (
	candidateRegex = regexp.MustCompile(`\b\d{4,8}\b`)
	keywordRegex   = regexp.MustCompile(`(?i)(otp|kode|code|verification|verify|login|password|token)`)
)

type candidate struct {
	value    string
	position int
	score    int
}

// Extract 从文本中提取最可能的验证码。
// 候选为 4-8 位独立数字，按长度和上下文关键词打分，
// 同分时靠前者优先，没有候选时返回空串。
func Extract(text string) string {
	matches := candidateRegex.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return ""
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		value := text[m[0]:m[1]]

		score := 0
		switch len(value) {
		case 6:
			score += 3
		case 5, 7:
			score += 2
		case 4, 8:
			score++
		}

		start := m[0] - keywordWindow
		if start < 0 {
			start = 0
		}
		end := m[1] + keywordWindow
		if end > len(text) {
			end = len(text)
		}
		if keywordRegex.MatchString(text[start:end]) {
			score += 5
		}

		candidates = append(candidates, candidate{value: value, position: m[0], score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].position < candidates[j].position
	})

	return candidates[0].value
}

// FromDetail 从邮件详情中提取验证码。
// 优先使用纯文本正文，其次是 HTML 正文转换出的文本，最后回退到摘要。
func FromDetail(detail domain.MessageDetail) string {
	if detail.BodyText != "" {
		if code := Extract(detail.BodyText); code != "" {
			return code
		}
	}
	if detail.BodyHTML != "" {
		if code := Extract(StripHTML(detail.BodyHTML)); code != "" {
			return code
		}
	}
	return Extract(detail.Subject + " " + detail.Snippet)
}
