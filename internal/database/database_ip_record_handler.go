package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"

	"gorm.io/gorm"
)

var ErrUnsupportedPredicate = errors.New("database: unsupported predicate")

// GormStore reads IP records from a relational table shaped like the all_ips
// collection: scalar columns, JSON array columns for zones/domains/sources and
// host_* columns for the nested host document.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error) {
	query, err := s.scoped(ctx, predicate)
	if err != nil {
		return nil, err
	}

	// Stable order so consecutive pages never overlap.
	query = query.Order("id")

	if page.Paged() {
		query = query.Offset(page.Offset()).Limit(page.Limit)
	}

	records := make([]domain.IPRecord, 0)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) Count(ctx context.Context, predicate filter.Predicate) (int64, error) {
	query, err := s.scoped(ctx, predicate)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) scoped(ctx context.Context, predicate filter.Predicate) (*gorm.DB, error) {
	query := s.db.WithContext(ctx).Model(&domain.IPRecord{})

	switch p := predicate.(type) {
	case filter.All:
		return query, nil
	case filter.IPEquals:
		return query.Where("ip = ?", p.IP), nil
	case filter.Tracked:
		return query.Where("host_hosting_partner = ?", domain.TrackedPartner), nil
	case filter.Managed:
		return query.Where("host_hosting_partner = ? OR host_splunk IS NOT NULL", domain.TrackedPartner), nil
	case filter.ZoneContains:
		return s.whereListContains(query, "zones", p.Zone)
	case filter.DomainContains:
		return s.whereListContains(query, "domains", p.Domain)
	case filter.HostPartnerEquals:
		return query.Where("host_hosting_partner = ?", p.Partner), nil
	case filter.HostCIDREquals:
		return query.Where("host_host_cidr = ?", p.CIDR), nil
	case filter.VersionEquals:
		return query.Where("version = ?", p.Version), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPredicate, predicate)
	}
}

// whereListContains matches rows whose JSON array column holds value. column
// is always one of the fixed names above, never caller input.
func (s *GormStore) whereListContains(query *gorm.DB, column string, value string) (*gorm.DB, error) {
	if s.db.Dialector.Name() == "postgres" {
		needle, err := json.Marshal([]string{value})
		if err != nil {
			return nil, err
		}
		return query.Where(column+" @> ?::jsonb", string(needle)), nil
	}

	return query.Where(
		"EXISTS (SELECT 1 FROM json_each("+domain.IPRecordCollection+"."+column+") WHERE json_each.value = ?)",
		value,
	), nil
}
