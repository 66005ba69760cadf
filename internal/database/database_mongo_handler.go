package database

import (
	"context"
	"fmt"

	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo opens a client and returns the all_ips collection of database.
// Embedded documents decode into maps so opaque fields serialize as objects.
func ConnectMongo(ctx context.Context, uri string, database string) (*mongo.Client, *mongo.Collection, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("database: connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("database: ping mongo: %w", err)
	}

	log.Info("MongoDB connection ready", "database", database, "collection", domain.IPRecordCollection)
	return client, client.Database(database).Collection(domain.IPRecordCollection), nil
}

// MongoStore reads IP records from the all_ips document collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error) {
	query, err := mongoFilter(predicate)
	if err != nil {
		return nil, err
	}

	opts := findOptions(page)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	records := make([]domain.IPRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *MongoStore) Count(ctx context.Context, predicate filter.Predicate) (int64, error) {
	query, err := mongoFilter(predicate)
	if err != nil {
		return 0, err
	}
	return s.coll.CountDocuments(ctx, query)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func findOptions(page filter.Page) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if page.Paged() {
		opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.Limit))
	}
	return opts
}

// mongoFilter builds the filter document for predicate. Values are always
// placed in value position, so a string can never act as an operator.
func mongoFilter(predicate filter.Predicate) (bson.D, error) {
	switch p := predicate.(type) {
	case filter.All:
		return bson.D{}, nil
	case filter.IPEquals:
		return bson.D{{Key: "ip", Value: p.IP}}, nil
	case filter.Tracked:
		return trackedFilter(), nil
	case filter.Managed:
		return bson.D{{Key: "$or", Value: bson.A{
			trackedFilter(),
			bson.D{{Key: "host.splunk", Value: bson.D{{Key: "$exists", Value: true}}}},
		}}}, nil
	case filter.ZoneContains:
		return bson.D{{Key: "zones", Value: p.Zone}}, nil
	case filter.DomainContains:
		return bson.D{{Key: "domains", Value: p.Domain}}, nil
	case filter.HostPartnerEquals:
		return bson.D{{Key: "host.hosting_partner", Value: p.Partner}}, nil
	case filter.HostCIDREquals:
		return bson.D{{Key: "host.host_cidr", Value: p.CIDR}}, nil
	case filter.VersionEquals:
		return bson.D{{Key: "version", Value: p.Version}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPredicate, predicate)
	}
}

func trackedFilter() bson.D {
	return bson.D{{Key: "host.hosting_partner", Value: domain.TrackedPartner}}
}
