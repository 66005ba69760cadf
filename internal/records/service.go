// Package records is the IP record query service: a fixed set of filtered
// lookups over the all_ips collection, each with list, paginated and count
// variants.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/sanitize"
)

// ErrInvalidFilter wraps every rejection raised by the sanitizer.
var ErrInvalidFilter = errors.New("records: invalid filter value")

// Store is the read side of the IP record collection.
type Store interface {
	Find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error)
	Count(ctx context.Context, predicate filter.Predicate) (int64, error)
}

// Sanitizer cleanses a caller-supplied value before it becomes part of a
// predicate.
type Sanitizer interface {
	Scalar(value any) (any, error)
}

// Service runs the fixed IP record lookups against a Store. Every caller
// supplied value passes through the Sanitizer before it reaches a predicate.
type Service struct {
	store     Store
	sanitizer Sanitizer
}

// Option configures a Service built by NewService.
type Option func(*Service)

// WithSanitizer replaces the default sanitizer; nil keeps the default.
func WithSanitizer(s Sanitizer) Option {
	return func(svc *Service) {
		if s != nil {
			svc.sanitizer = s
		}
	}
}

// NewService returns a Service reading from store with sanitize.Default
// unless an Option overrides it.
func NewService(store Store, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		sanitizer: sanitize.Default,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListAll returns every record in the window selected by page.
func (s *Service) ListAll(ctx context.Context, page filter.Page) ([]domain.IPRecord, error) {
	return s.find(ctx, filter.All{}, page)
}

// CountAll counts the whole collection. Counts ignore pagination.
func (s *Service) CountAll(ctx context.Context) (int64, error) {
	return s.count(ctx, filter.All{})
}

// FindByIP returns every record whose ip equals ip exactly.
func (s *Service) FindByIP(ctx context.Context, ip string) ([]domain.IPRecord, error) {
	clean, err := s.cleanString(ip)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter.IPEquals{IP: clean}, filter.Page{})
}

func (s *Service) ListTracked(ctx context.Context, page filter.Page) ([]domain.IPRecord, error) {
	return s.find(ctx, filter.Tracked{}, page)
}

// CountTracked counts the records ListTracked would return without a page.
func (s *Service) CountTracked(ctx context.Context) (int64, error) {
	return s.count(ctx, filter.Tracked{})
}

// ListManaged returns tracked records plus any record with a splunk document.
func (s *Service) ListManaged(ctx context.Context, page filter.Page) ([]domain.IPRecord, error) {
	return s.find(ctx, filter.Managed{}, page)
}

// CountManaged counts the records ListManaged would return without a page.
func (s *Service) CountManaged(ctx context.Context) (int64, error) {
	return s.count(ctx, filter.Managed{})
}

func (s *Service) FindByZone(ctx context.Context, zone string) ([]domain.IPRecord, error) {
	clean, err := s.cleanString(zone)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter.ZoneContains{Zone: clean}, filter.Page{})
}

// CountByZone counts the matches of FindByZone.
func (s *Service) CountByZone(ctx context.Context, zone string) (int64, error) {
	clean, err := s.cleanString(zone)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, filter.ZoneContains{Zone: clean})
}

func (s *Service) FindByDomain(ctx context.Context, domainName string) ([]domain.IPRecord, error) {
	clean, err := s.cleanString(domainName)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter.DomainContains{Domain: clean}, filter.Page{})
}

// CountByDomain counts the matches of FindByDomain.
func (s *Service) CountByDomain(ctx context.Context, domainName string) (int64, error) {
	clean, err := s.cleanString(domainName)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, filter.DomainContains{Domain: clean})
}

func (s *Service) FindByHostPartner(ctx context.Context, partner string, page filter.Page) ([]domain.IPRecord, error) {
	clean, err := s.cleanString(partner)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter.HostPartnerEquals{Partner: clean}, page)
}

// CountByHostPartner counts every record hosted by partner, regardless of page.
func (s *Service) CountByHostPartner(ctx context.Context, partner string) (int64, error) {
	clean, err := s.cleanString(partner)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, filter.HostPartnerEquals{Partner: clean})
}

func (s *Service) FindByHostCIDR(ctx context.Context, cidr string) ([]domain.IPRecord, error) {
	clean, err := s.cleanString(cidr)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter.HostCIDREquals{CIDR: clean}, filter.Page{})
}

// CountByHostCIDR counts the matches of FindByHostCIDR.
func (s *Service) CountByHostCIDR(ctx context.Context, cidr string) (int64, error) {
	clean, err := s.cleanString(cidr)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, filter.HostCIDREquals{CIDR: clean})
}

func (s *Service) FindByIPVersion(ctx context.Context, version int, page filter.Page) ([]domain.IPRecord, error) {
	clean, err := s.cleanInt(version)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter.VersionEquals{Version: clean}, page)
}

// CountByIPVersion counts every record of the given ip version, regardless of page.
func (s *Service) CountByIPVersion(ctx context.Context, version int) (int64, error) {
	clean, err := s.cleanInt(version)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, filter.VersionEquals{Version: clean})
}

// find returns the store error untouched so callers can classify it.
func (s *Service) find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error) {
	page = page.Normalize()
	log.Debug("ip record query", "filter", predicate.Key(), "limit", page.Limit, "page", page.Page)
	return s.store.Find(ctx, predicate, page)
}

func (s *Service) count(ctx context.Context, predicate filter.Predicate) (int64, error) {
	log.Debug("ip record count", "filter", predicate.Key())
	return s.store.Count(ctx, predicate)
}

func (s *Service) cleanString(value string) (string, error) {
	cleaned, err := s.sanitizer.Scalar(value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	str, ok := cleaned.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidFilter, cleaned)
	}
	return str, nil
}

func (s *Service) cleanInt(value int) (int, error) {
	cleaned, err := s.sanitizer.Scalar(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	n, ok := cleaned.(int)
	if !ok {
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidFilter, cleaned)
	}
	return n, nil
}
