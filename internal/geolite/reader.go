package geolite

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var ErrInvalidIP = errors.New("geolite: invalid ip address")

// Reader resolves IP addresses to ISO-3166 country codes from a MaxMind
// country database. A nil *Reader answers every lookup with an empty code.
type Reader struct {
	mu sync.RWMutex
	db *geoip2.Reader
}

func NewReader(path string) (*Reader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geolite: open %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// NewReaderFromBytes is used when the database is embedded or already loaded.
func NewReaderFromBytes(data []byte) (*Reader, error) {
	db, err := geoip2.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("geolite: load database: %w", err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Country(ipAddress string) (string, error) {
	if r == nil {
		return "", nil
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, ipAddress)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.db == nil {
		return "", nil
	}

	record, err := r.db.Country(ip)
	if err != nil {
		return "", fmt.Errorf("geolite: country lookup: %w", err)
	}
	return record.Country.IsoCode, nil
}

func (r *Reader) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
