package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

// DomainService 封装可用域名目录的业务逻辑。
type DomainService struct {
	domainRepo storage.DomainRepository
	logger     *zap.Logger
}

// NewDomainService 创建域名业务服务。
func NewDomainService(domainRepo storage.DomainRepository, logger *zap.Logger) *DomainService {
	return &DomainService{domainRepo: domainRepo, logger: logger}
}

// ListActive 返回当前启用的域名名称，供签发别名的前端使用。
func (s *DomainService) ListActive() ([]string, error) {
	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return nil, fmt.Errorf("读取域名目录失败: %w", err)
	}

	names := make([]string, 0, len(domains))
	for _, d := range domains {
		if d.Active {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// ListAll 返回全部域名记录。
func (s *DomainService) ListAll() ([]domain.Domain, error) {
	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return nil, fmt.Errorf("读取域名目录失败: %w", err)
	}
	return domains, nil
}

// Add 添加一个新域名，默认启用。
func (s *DomainService) Add(name string) (domain.Domain, error) {
	name = domain.NormalizeAddress(name)
	if err := domain.ValidateDomain(name); err != nil {
		return domain.Domain{}, fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return domain.Domain{}, fmt.Errorf("读取域名目录失败: %w", err)
	}

	for _, d := range domains {
		if d.Name == name {
			return domain.Domain{}, fmt.Errorf("%w: %s", ErrDomainExists, name)
		}
	}

	added := domain.Domain{Name: name, Active: true, CreatedAt: time.Now().UTC()}
	domains = append(domains, added)
	if err := s.domainRepo.SaveDomains(domains); err != nil {
		return domain.Domain{}, fmt.Errorf("保存域名目录失败: %w", err)
	}

	s.logger.Info("域名已添加", zap.String("domain", name))
	return added, nil
}

// SetActive 启用或停用一个域名。
// 停用只阻止新别名签发，已有别名不受影响。
func (s *DomainService) SetActive(name string, active bool) (domain.Domain, error) {
	name = domain.NormalizeAddress(name)
	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return domain.Domain{}, fmt.Errorf("读取域名目录失败: %w", err)
	}

	for i := range domains {
		if domains[i].Name != name {
			continue
		}
		domains[i].Active = active
		if err := s.domainRepo.SaveDomains(domains); err != nil {
			return domain.Domain{}, fmt.Errorf("保存域名目录失败: %w", err)
		}
		s.logger.Info("域名状态已更新", zap.String("domain", name), zap.Bool("active", active))
		return domains[i], nil
	}
	return domain.Domain{}, fmt.Errorf("%w: %s", ErrDomainNotFound, name)
}

// Delete 删除一个域名。
// 已有别名不受影响，只是该域名不能再签发新别名。
func (s *DomainService) Delete(name string) error {
	name = domain.NormalizeAddress(name)
	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return fmt.Errorf("读取域名目录失败: %w", err)
	}

	kept := domains[:0]
	found := false
	for _, d := range domains {
		if d.Name == name {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}

	if err := s.domainRepo.SaveDomains(kept); err != nil {
		return fmt.Errorf("保存域名目录失败: %w", err)
	}
	s.logger.Info("域名已删除", zap.String("domain", name))
	return nil
}

// Count 返回域名总数。
func (s *DomainService) Count() int {
	domains, err := s.domainRepo.LoadDomains()
	if err != nil {
		return 0
	}
	return len(domains)
}
