package mailbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// 元数据请求只拉取这些头部
var metadataHeaders = []string{"Subject", "From", "Date", "To", "Cc", "Bcc", "Delivered-To", "X-Original-To"}

// 收件判定使用的头部
var recipientHeaders = []string{"To", "Cc", "Bcc", "Delivered-To", "X-Original-To"}

// GmailProvider 基于 Gmail API 的邮箱访问实现。
// 每次调用通过 TokenSource 构建服务端点，令牌刷新由令牌源内部完成；
// 所有上游请求经过限速器，避免触发配额。
type GmailProvider struct {
	tokenSource func(ctx context.Context) (oauth2.TokenSource, error)
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewGmailProvider 创建 Gmail 邮箱访问器。
// rps 为每秒允许的上游请求数。
func NewGmailProvider(tokenSource func(ctx context.Context) (oauth2.TokenSource, error), rps float64, logger *zap.Logger) *GmailProvider {
	if rps <= 0 {
		rps = 10
	}
	return &GmailProvider{
		tokenSource: tokenSource,
		limiter:     rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:      logger,
	}
}

func (p *GmailProvider) service(ctx context.Context) (*gmail.Service, error) {
	ts, err := p.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("创建 Gmail 服务失败: %w", err)
	}
	return svc, nil
}

// Profile 访问账号概况并返回邮箱地址，用于令牌健康检查。
func (p *GmailProvider) Profile(ctx context.Context) (string, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return "", err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("读取账号概况失败: %w", err)
	}
	return profile.EmailAddress, nil
}

// ListIDs 拉取邮件 ID 列表。
// 无别名时只看收件箱；指定别名时检索近 7 天的全部邮件（含垃圾箱），
// 转发到别名的邮件可能被归入垃圾箱。
func (p *GmailProvider) ListIDs(ctx context.Context, opts ListOptions) ([]string, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Users.Messages.List("me").MaxResults(opts.Max).Context(ctx)
	if opts.Alias == "" {
		call = call.LabelIds("INBOX")
	} else {
		call = call.Q("newer_than:7d").IncludeSpamTrash(true)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("拉取邮件列表失败: %w", err)
	}

	ids := make([]string, len(resp.Messages))
	for i, m := range resp.Messages {
		ids[i] = m.Id
	}
	return ids, nil
}

// Metadata 拉取单封邮件的头部元数据。
func (p *GmailProvider) Metadata(ctx context.Context, id string) (Summary, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return Summary{}, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Summary{}, err
	}

	call := svc.Users.Messages.Get("me", id).Format("metadata").Context(ctx)
	for _, h := range metadataHeaders {
		call = call.MetadataHeaders(h)
	}
	msg, err := call.Do()
	if err != nil {
		return Summary{}, err
	}

	headers := headerMap(msg.Payload)
	recipients := make([]string, 0, len(recipientHeaders))
	for _, h := range recipientHeaders {
		if v := headers[strings.ToLower(h)]; v != "" {
			recipients = append(recipients, v)
		}
	}

	return Summary{
		ID:         msg.Id,
		Subject:    headers["subject"],
		From:       headers["from"],
		To:         headers["to"],
		Date:       headers["date"],
		Snippet:    msg.Snippet,
		Recipients: strings.Join(recipients, " "),
	}, nil
}

// Get 拉取单封邮件的完整内容。
func (p *GmailProvider) Get(ctx context.Context, id string) (Detail, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return Detail{}, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Detail{}, err
	}
	msg, err := svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return Detail{}, ErrMessageNotFound
		}
		return Detail{}, fmt.Errorf("拉取邮件详情失败: %w", err)
	}

	headers := headerMap(msg.Payload)
	bodyText, bodyHTML := assembleBody(msg.Payload)

	return Detail{
		ID:       msg.Id,
		Subject:  headers["subject"],
		From:     headers["from"],
		Date:     headers["date"],
		Snippet:  msg.Snippet,
		BodyHTML: bodyHTML,
		BodyText: bodyText,
	}, nil
}

// headerMap 把头部列表转为小写键的映射。
func headerMap(payload *gmail.MessagePart) map[string]string {
	m := make(map[string]string)
	if payload == nil {
		return m
	}
	for _, h := range payload.Headers {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}

// assembleBody 递归遍历 MIME 结构，拼接全部 text/plain 和 text/html 片段。
func assembleBody(part *gmail.MessagePart) (text, html string) {
	if part == nil {
		return "", ""
	}

	if part.Body != nil && part.Body.Data != "" {
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data); err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/plain"):
				text += string(decoded)
			case strings.HasPrefix(part.MimeType, "text/html"):
				html += string(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		childText, childHTML := assembleBody(child)
		text += childText
		html += childHTML
	}
	return text, html
}
