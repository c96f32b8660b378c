package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/mailbox"
	"aliasmail/backend/internal/monitoring"
	"aliasmail/backend/internal/otp"
)

// 邮件列表的条数限制
const (
	defaultMaxMessages = 20
	capMaxMessages     = 50
)

// 元数据拉取的并发上限
const metadataConcurrency = 8

// InboxService 封装邮件列表与详情的业务逻辑。
// 上游结果按邮件粒度缓存，别名匹配在本地完成。
type InboxService struct {
	provider   mailbox.Provider
	cache      cache.Cache
	aliases    *AliasService
	logs       *LogService
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	defaultMax int64
}

// InboxOption 调整收件服务的可选参数。
type InboxOption func(*InboxService)

// WithDefaultMax 设置未指定条数时的默认拉取上限。
func WithDefaultMax(n int64) InboxOption {
	return func(s *InboxService) {
		if n > 0 {
			s.defaultMax = n
		}
	}
}

// WithInboxMetrics 挂载运行指标采集。
func WithInboxMetrics(m *monitoring.Metrics) InboxOption {
	return func(s *InboxService) {
		s.metrics = m
	}
}

// NewInboxService 创建收件业务服务。
func NewInboxService(provider mailbox.Provider, c cache.Cache, aliases *AliasService, logs *LogService, logger *zap.Logger, opts ...InboxOption) *InboxService {
	s := &InboxService{
		provider:   provider,
		cache:      c,
		aliases:    aliases,
		logs:       logs,
		logger:     logger,
		defaultMax: defaultMaxMessages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List 拉取邮件列表。
// alias 非空时按注册同样的规则校验，校验不过不触发上游拉取；
// 通过后只返回收件头中包含该别名的邮件，
// 匹配到结果会刷新别名的使用记录；所有结果并入投递日志。
func (s *InboxService) List(ctx context.Context, alias string, max int64) ([]domain.MessageSummary, error) {
	if max <= 0 {
		max = s.defaultMax
	}
	if max > capMaxMessages {
		max = capMaxMessages
	}
	if alias != "" {
		normalized, err := s.aliases.Validate(alias)
		if err != nil {
			return nil, err
		}
		alias = normalized
	}

	start := time.Now()
	ids, err := s.provider.ListIDs(ctx, mailbox.ListOptions{Alias: alias, Max: max})
	s.recordUpstream("messages.list", err, time.Since(start))
	if err != nil {
		return nil, s.mapUpstreamErr(err)
	}
	if len(ids) == 0 {
		return []domain.MessageSummary{}, nil
	}

	summaries := make([]mailbox.Summary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			summary, err := s.metadata(gctx, id, alias)
			if err != nil {
				// 单封失败不拖垮整个列表
				s.logger.Warn("拉取邮件元数据失败", zap.String("id", id), zap.Error(err))
				return nil
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.mapUpstreamErr(err)
	}

	result := make([]domain.MessageSummary, 0, len(summaries))
	logEntries := make([]domain.LogEntry, 0, len(summaries))
	matched := false
	for _, summary := range summaries {
		if summary.ID == "" {
			continue
		}
		if alias != "" && !recipientsMatch(summary.Recipients, alias) {
			continue
		}
		if alias != "" {
			matched = true
		}
		result = append(result, domain.MessageSummary{
			ID:      summary.ID,
			Subject: summary.Subject,
			From:    summary.From,
			To:      summary.To,
			Date:    summary.Date,
			Snippet: summary.Snippet,
		})
		logEntries = append(logEntries, domain.LogEntry{
			ID:      summary.ID,
			Alias:   alias,
			From:    summary.From,
			Subject: summary.Subject,
			Date:    summary.Date,
			Snippet: summary.Snippet,
		})
	}

	if matched {
		s.aliases.Touch(alias)
	}
	s.logs.Touch(logEntries)

	return result, nil
}

// Detail 拉取单封邮件的完整内容并附带提取的验证码。
func (s *InboxService) Detail(ctx context.Context, id string) (domain.MessageDetail, error) {
	if strings.TrimSpace(id) == "" {
		return domain.MessageDetail{}, ErrMissingID
	}

	key := cache.KeyPrefixDetail + id
	if data, ok := s.cache.Get(ctx, key); ok {
		var detail domain.MessageDetail
		if err := json.Unmarshal(data, &detail); err == nil {
			s.recordCache("detail", true)
			return detail, nil
		}
	}
	s.recordCache("detail", false)

	start := time.Now()
	raw, err := s.provider.Get(ctx, id)
	s.recordUpstream("messages.get", err, time.Since(start))
	if err != nil {
		if errors.Is(err, mailbox.ErrMessageNotFound) {
			return domain.MessageDetail{}, ErrMessageNotFound
		}
		return domain.MessageDetail{}, s.mapUpstreamErr(err)
	}

	detail := domain.MessageDetail{
		ID:       raw.ID,
		Subject:  raw.Subject,
		From:     raw.From,
		Date:     raw.Date,
		Snippet:  raw.Snippet,
		BodyHTML: raw.BodyHTML,
		BodyText: raw.BodyText,
	}
	detail.OTP = otp.FromDetail(detail)

	if data, err := json.Marshal(detail); err == nil {
		// ttl 0 使用缓存配置的默认时长
		s.cache.Set(ctx, key, data, 0)
	}
	return detail, nil
}

// metadata 读取单封邮件的元数据，优先命中缓存。
// 缓存键按是否带别名区分，两种检索范围的结果互不污染。
func (s *InboxService) metadata(ctx context.Context, id, alias string) (mailbox.Summary, error) {
	key := cache.KeyPrefixMessage + id
	if alias != "" {
		key = key + ":" + alias
	}

	if data, ok := s.cache.Get(ctx, key); ok {
		var summary mailbox.Summary
		if err := json.Unmarshal(data, &summary); err == nil {
			s.recordCache("message", true)
			return summary, nil
		}
	}
	s.recordCache("message", false)

	start := time.Now()
	summary, err := s.provider.Metadata(ctx, id)
	s.recordUpstream("messages.get_metadata", err, time.Since(start))
	if err != nil {
		return mailbox.Summary{}, err
	}

	if data, err := json.Marshal(summary); err == nil {
		s.cache.Set(ctx, key, data, 0)
	}
	return summary, nil
}

func (s *InboxService) recordCache(kind string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(kind)
	} else {
		s.metrics.RecordCacheMiss(kind)
	}
}

func (s *InboxService) recordUpstream(operation string, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordUpstreamCall(operation, status, duration)
}

func (s *InboxService) mapUpstreamErr(err error) error {
	if errors.Is(err, auth.ErrNoToken) {
		return ErrNoToken
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// recipientsMatch 判断别名是否出现在收件头汇总中。
// 使用大小写不敏感的子串匹配，接受宽松的转发头写法。
func recipientsMatch(recipients, alias string) bool {
	if recipients == "" || alias == "" {
		return false
	}
	return strings.Contains(strings.ToLower(recipients), alias)
}
