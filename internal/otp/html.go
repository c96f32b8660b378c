package otp

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML 把 HTML 正文转换为纯文本。
// 跳过 script 和 style 的内容，块级标签之间补空白，
// 解析失败时返回原始输入。
func StripHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		case html.TextNode:
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "tr", "li", "td", "h1", "h2", "h3", "h4":
				sb.WriteString(" ")
			}
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}
