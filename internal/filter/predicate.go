// Package filter holds the typed predicates the IP record queries are built
// from. Storage adapters translate each variant into their own query language.
package filter

import (
	"fmt"
	"strconv"
)

// Predicate is one of the variants declared in this package.
type Predicate interface {
	// Key is a stable description of the predicate, used in logs and cache keys.
	Key() string
	predicate()
}

// All matches every record.
type All struct{}

// IPEquals matches records whose ip equals IP.
type IPEquals struct{ IP string }

// Tracked matches records whose hosting partner is TRACKED.
type Tracked struct{}

// Managed matches tracked records and records carrying Splunk metadata.
type Managed struct{}

// ZoneContains matches records listing Zone among their zones.
type ZoneContains struct{ Zone string }

// DomainContains matches records listing Domain among their domains.
type DomainContains struct{ Domain string }

type HostPartnerEquals struct{ Partner string }

type HostCIDREquals struct{ CIDR string }

type VersionEquals struct{ Version int }

func (All) predicate()               {}
func (IPEquals) predicate()          {}
func (Tracked) predicate()           {}
func (Managed) predicate()           {}
func (ZoneContains) predicate()      {}
func (DomainContains) predicate()    {}
func (HostPartnerEquals) predicate() {}
func (HostCIDREquals) predicate()    {}
func (VersionEquals) predicate()     {}

func (All) Key() string                 { return "all" }
func (p IPEquals) Key() string          { return "ip:" + strconv.Quote(p.IP) }
func (Tracked) Key() string             { return "tracked" }
func (Managed) Key() string             { return "managed" }
func (p ZoneContains) Key() string      { return "zone:" + strconv.Quote(p.Zone) }
func (p DomainContains) Key() string    { return "domain:" + strconv.Quote(p.Domain) }
func (p HostPartnerEquals) Key() string { return "partner:" + strconv.Quote(p.Partner) }
func (p HostCIDREquals) Key() string    { return "cidr:" + strconv.Quote(p.CIDR) }
func (p VersionEquals) Key() string     { return fmt.Sprintf("version:%d", p.Version) }
