package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

// AliasService 封装别名目录的业务逻辑。
type AliasService struct {
	aliasRepo  storage.AliasRepository
	domainRepo storage.DomainRepository
	logger     *zap.Logger
}

// NewAliasService 创建别名业务服务。
func NewAliasService(aliasRepo storage.AliasRepository, domainRepo storage.DomainRepository, logger *zap.Logger) *AliasService {
	return &AliasService{
		aliasRepo:  aliasRepo,
		domainRepo: domainRepo,
		logger:     logger,
	}
}

// Register 注册一个别名，重复注册是幂等的。
// 地址必须结构合法且域名在已启用列表中；
// 已存在的别名只刷新使用时间并累加次数。
func (s *AliasService) Register(address string) (domain.Alias, error) {
	normalized, err := s.Validate(address)
	if err != nil {
		return domain.Alias{}, err
	}

	aliases, err := s.aliasRepo.LoadAliases()
	if err != nil {
		return domain.Alias{}, fmt.Errorf("读取别名目录失败: %w", err)
	}

	now := time.Now().UTC()
	for i := range aliases {
		if aliases[i].Address == normalized {
			aliases[i].LastUsedAt = now
			aliases[i].Hits++
			if err := s.aliasRepo.SaveAliases(aliases); err != nil {
				return domain.Alias{}, fmt.Errorf("保存别名目录失败: %w", err)
			}
			return aliases[i], nil
		}
	}

	alias := domain.Alias{
		Address:    normalized,
		CreatedAt:  now,
		LastUsedAt: now,
		Hits:       1,
		Active:     true,
	}
	aliases = append(aliases, alias)
	if err := s.aliasRepo.SaveAliases(aliases); err != nil {
		return domain.Alias{}, fmt.Errorf("保存别名目录失败: %w", err)
	}

	s.logger.Info("别名已注册", zap.String("alias", normalized))
	return alias, nil
}

// Validate 按注册同样的规则校验别名地址，返回规范化结果。
// 地址必须结构合法，且域名在已启用列表中。
func (s *AliasService) Validate(address string) (string, error) {
	normalized, dom, err := domain.ValidateAddress(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !s.domainAllowed(dom) {
		return "", fmt.Errorf("%w: %s", ErrDomainNotAllowed, dom)
	}
	return normalized, nil
}

// Touch 刷新别名的使用时间并累加次数。
// 别名不存在时静默忽略，匹配流程不因目录缺失而失败。
func (s *AliasService) Touch(address string) {
	normalized := domain.NormalizeAddress(address)
	aliases, err := s.aliasRepo.LoadAliases()
	if err != nil {
		return
	}

	for i := range aliases {
		if aliases[i].Address == normalized {
			aliases[i].LastUsedAt = time.Now().UTC()
			aliases[i].Hits++
			if err := s.aliasRepo.SaveAliases(aliases); err != nil {
				s.logger.Warn("刷新别名使用记录失败", zap.String("alias", normalized), zap.Error(err))
			}
			return
		}
	}
}

// List 返回全部别名，按创建时间倒序。
func (s *AliasService) List() ([]domain.Alias, error) {
	aliases, err := s.aliasRepo.LoadAliases()
	if err != nil {
		return nil, fmt.Errorf("读取别名目录失败: %w", err)
	}

	// 新注册的排前面
	for i, j := 0, len(aliases)-1; i < j; i, j = i+1, j-1 {
		aliases[i], aliases[j] = aliases[j], aliases[i]
	}
	return aliases, nil
}

// Delete 删除一个别名。
func (s *AliasService) Delete(address string) error {
	normalized := domain.NormalizeAddress(address)
	aliases, err := s.aliasRepo.LoadAliases()
	if err != nil {
		return fmt.Errorf("读取别名目录失败: %w", err)
	}

	kept := aliases[:0]
	found := false
	for _, a := range aliases {
		if a.Address == normalized {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return ErrAliasNotFound
	}

	if err := s.aliasRepo.SaveAliases(kept); err != nil {
		return fmt.Errorf("保存别名目录失败: %w", err)
	}
	s.logger.Info("别名已删除", zap.String("alias", normalized))
	return nil
}

// Count 返回别名总数。
func (s *AliasService) Count() int {
	aliases, err := s.aliasRepo.LoadAliases()
	if err != nil {
		return 0
	}
	return len(aliases)
}

func (s *AliasService) domainAllowed(name string) bool {
	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return false
	}
	name = strings.ToLower(name)
	for _, d := range domains {
		if d.Active && d.Name == name {
			return true
		}
	}
	return false
}
