package mailbox

import (
	"context"
	"errors"
)

var (
	// ErrMessageNotFound 邮件不存在错误
	ErrMessageNotFound = errors.New("message not found")
)

// Summary 表示上游邮箱返回的一条邮件概要。
// Recipients 汇总了全部收件相关头部，供别名匹配使用。
type Summary struct {
	ID         string
	Subject    string
	From       string
	To         string
	Date       string
	Snippet    string
	Recipients string
}

// Detail 表示上游邮箱返回的完整邮件。
type Detail struct {
	ID       string
	Subject  string
	From     string
	Date     string
	Snippet  string
	BodyHTML string
	BodyText string
}

// ListOptions 控制邮件列表请求。
// Alias 非空时扩大检索范围（近期邮件含垃圾箱），由调用方完成别名匹配。
type ListOptions struct {
	Alias string
	Max   int64
}

// Provider 定义上游真实邮箱的只读访问接口。
// ListIDs 只返回邮件 ID，元数据由调用方按需拉取以配合缓存。
type Provider interface {
	ListIDs(ctx context.Context, opts ListOptions) ([]string, error)
	Metadata(ctx context.Context, id string) (Summary, error)
	Get(ctx context.Context, id string) (Detail, error)
}
