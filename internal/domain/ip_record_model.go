package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// TrackedPartner is the hosting partner value that marks an IP as tracked.
const TrackedPartner = "TRACKED"

// IPRecordCollection is the collection (and table) holding IP records.
const IPRecordCollection = "all_ips"

// IPRecord is a single IP address seen by the ingestion pipeline. Records are
// written elsewhere; this service only reads them.
type IPRecord struct {
	ID         string     `gorm:"primaryKey;size:24" bson:"_id,omitempty" json:"id"`
	IP         string     `gorm:"column:ip;index" bson:"ip" json:"ip"`
	Created    time.Time  `gorm:"column:created" bson:"created" json:"created"`
	Updated    time.Time  `gorm:"column:updated" bson:"updated" json:"updated"`
	Version    int        `gorm:"column:version;index" bson:"version" json:"version"`
	ReverseDNS string     `gorm:"column:reverse_dns" bson:"reverse_dns,omitempty" json:"reverse_dns,omitempty"`
	Zones      StringList `gorm:"column:zones" bson:"zones" json:"zones"`
	Domains    StringList `gorm:"column:domains" bson:"domains" json:"domains"`
	Sources    SourceList `gorm:"column:sources" bson:"sources" json:"sources"`
	Host       Host       `gorm:"embedded;embeddedPrefix:host_" bson:"host" json:"host"`
}

// Host is the hosting metadata nested in an IP record.
type Host struct {
	HostingPartner string     `gorm:"column:hosting_partner;index" bson:"hosting_partner,omitempty" json:"hosting_partner,omitempty"`
	HostCIDR       string     `gorm:"column:host_cidr" bson:"host_cidr,omitempty" json:"host_cidr,omitempty"`
	Notes          string     `gorm:"column:notes" bson:"notes,omitempty" json:"notes,omitempty"`
	Splunk         JSONObject `gorm:"column:splunk" bson:"splunk,omitempty" json:"splunk,omitempty"`
}

func (IPRecord) TableName() string {
	return IPRecordCollection
}

// BeforeCreate assigns an ObjectID-style identifier so rows inserted through
// gorm sort the same way documents do.
func (record *IPRecord) BeforeCreate(_ *gorm.DB) error {
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	return nil
}

func (record IPRecord) Tracked() bool {
	return record.Host.HostingPartner == TrackedPartner
}

// Managed reports whether the record is tracked or carries Splunk telemetry.
func (record IPRecord) Managed() bool {
	return record.Tracked() || record.Host.Splunk != nil
}
