package graphql

import (
	"context"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"golang.org/x/sync/errgroup"

	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/records"
)

// CountryLookup resolves an IP address to an ISO country code. An empty code
// means the address is unknown.
type CountryLookup interface {
	Country(ip string) (string, error)
}

type resolver struct {
	svc *records.Service
	geo CountryLookup
}

func NewSchema(svc *records.Service, geo CountryLookup) (gql.Schema, error) {
	r := &resolver{svc: svc, geo: geo}

	jsonType := gql.NewScalar(gql.ScalarConfig{
		Name:        "JSON",
		Description: "An opaque JSON document.",
		Serialize: func(value interface{}) interface{} {
			return value
		},
		ParseValue: func(value interface{}) interface{} {
			return value
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			return nil
		},
	})

	sourceType := gql.NewObject(gql.ObjectConfig{
		Name: "IPRecordSource",
		Fields: gql.Fields{
			"source":  &gql.Field{Type: gql.NewNonNull(gql.String)},
			"updated": &gql.Field{Type: gql.DateTime},
		},
	})

	hostType := gql.NewObject(gql.ObjectConfig{
		Name: "IPRecordHost",
		Fields: gql.Fields{
			"hostingPartner": &gql.Field{Type: gql.String},
			"hostCidr":       &gql.Field{Type: gql.String},
			"notes":          &gql.Field{Type: gql.String},
			"splunk":         &gql.Field{Type: jsonType},
		},
	})

	recordType := gql.NewObject(gql.ObjectConfig{
		Name: "IPRecord",
		Fields: gql.Fields{
			"id":         &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"ip":         &gql.Field{Type: gql.NewNonNull(gql.String)},
			"version":    &gql.Field{Type: gql.NewNonNull(gql.Int)},
			"created":    &gql.Field{Type: gql.DateTime},
			"updated":    &gql.Field{Type: gql.DateTime},
			"reverseDns": &gql.Field{Type: gql.String},
			"zones":      &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(gql.String)))},
			"domains":    &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(gql.String)))},
			"sources":    &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(sourceType)))},
			"host":       &gql.Field{Type: gql.NewNonNull(hostType)},
			"tracked":    &gql.Field{Type: gql.NewNonNull(gql.Boolean)},
			"managed":    &gql.Field{Type: gql.NewNonNull(gql.Boolean)},
			"country": &gql.Field{
				Type: gql.String,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					item, ok := p.Source.(map[string]interface{})
					if !ok {
						return nil, nil
					}
					ip, _ := item["ip"].(string)
					return r.country(ip), nil
				},
			},
		},
	})

	recordListType := gql.NewNonNull(gql.NewList(gql.NewNonNull(recordType)))

	recordPageType := gql.NewObject(gql.ObjectConfig{
		Name: "IPRecordPage",
		Fields: gql.Fields{
			"page":       &gql.Field{Type: gql.NewNonNull(gql.Int)},
			"pageSize":   &gql.Field{Type: gql.NewNonNull(gql.Int)},
			"totalCount": &gql.Field{Type: gql.NewNonNull(gql.Int)},
			"items":      &gql.Field{Type: recordListType},
		},
	})

	pageArgs := func(extra gql.FieldConfigArgument) gql.FieldConfigArgument {
		args := gql.FieldConfigArgument{
			"limit": &gql.ArgumentConfig{Type: gql.Int},
			"page":  &gql.ArgumentConfig{Type: gql.Int},
		}
		for name, arg := range extra {
			args[name] = arg
		}
		return args
	}
	stringArg := func(name string) gql.FieldConfigArgument {
		return gql.FieldConfigArgument{name: &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)}}
	}
	versionArg := gql.FieldConfigArgument{"version": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)}}

	queryType := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"ipRecords": &gql.Field{
				Type: recordListType,
				Args: pageArgs(nil),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.ListAll(p.Context, pageFromArgs(p.Args)))
				},
			},
			"ipRecordCount": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountAll(p.Context))
				},
			},
			"ipRecordsByIP": &gql.Field{
				Type: recordListType,
				Args: stringArg("ip"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.FindByIP(p.Context, stringFromArgs(p.Args, "ip")))
				},
			},
			"trackedIPRecords": &gql.Field{
				Type: recordListType,
				Args: pageArgs(nil),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.ListTracked(p.Context, pageFromArgs(p.Args)))
				},
			},
			"trackedIPRecordCount": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountTracked(p.Context))
				},
			},
			"managedIPRecords": &gql.Field{
				Type: recordListType,
				Args: pageArgs(nil),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.ListManaged(p.Context, pageFromArgs(p.Args)))
				},
			},
			"managedIPRecordCount": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountManaged(p.Context))
				},
			},
			"ipRecordsByZone": &gql.Field{
				Type: recordListType,
				Args: stringArg("zone"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.FindByZone(p.Context, stringFromArgs(p.Args, "zone")))
				},
			},
			"ipRecordCountByZone": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Args: stringArg("zone"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountByZone(p.Context, stringFromArgs(p.Args, "zone")))
				},
			},
			"ipRecordsByDomain": &gql.Field{
				Type: recordListType,
				Args: stringArg("domain"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.FindByDomain(p.Context, stringFromArgs(p.Args, "domain")))
				},
			},
			"ipRecordCountByDomain": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Args: stringArg("domain"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountByDomain(p.Context, stringFromArgs(p.Args, "domain")))
				},
			},
			"ipRecordsByHostPartner": &gql.Field{
				Type: recordListType,
				Args: pageArgs(stringArg("partner")),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.FindByHostPartner(p.Context, stringFromArgs(p.Args, "partner"), pageFromArgs(p.Args)))
				},
			},
			"ipRecordCountByHostPartner": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Args: stringArg("partner"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountByHostPartner(p.Context, stringFromArgs(p.Args, "partner")))
				},
			},
			"ipRecordsByHostCIDR": &gql.Field{
				Type: recordListType,
				Args: stringArg("cidr"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return recordList(r.svc.FindByHostCIDR(p.Context, stringFromArgs(p.Args, "cidr")))
				},
			},
			"ipRecordCountByHostCIDR": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Args: stringArg("cidr"),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return countValue(r.svc.CountByHostCIDR(p.Context, stringFromArgs(p.Args, "cidr")))
				},
			},
			"ipRecordsByVersion": &gql.Field{
				Type: recordListType,
				Args: pageArgs(versionArg),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					version, _ := p.Args["version"].(int)
					return recordList(r.svc.FindByIPVersion(p.Context, version, pageFromArgs(p.Args)))
				},
			},
			"ipRecordCountByVersion": &gql.Field{
				Type: gql.NewNonNull(gql.Int),
				Args: versionArg,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					version, _ := p.Args["version"].(int)
					return countValue(r.svc.CountByIPVersion(p.Context, version))
				},
			},
			"ipRecordPage": &gql.Field{
				Type: gql.NewNonNull(recordPageType),
				Args: gql.FieldConfigArgument{
					"limit": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
					"page":  &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return r.buildRecordPage(p.Context, pageFromArgs(p.Args))
				},
			},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{
		Query: queryType,
	})
}

func (r *resolver) country(ip string) interface{} {
	if r.geo == nil {
		return nil
	}
	code, err := r.geo.Country(ip)
	if err != nil || code == "" {
		return nil
	}
	return code
}

// buildRecordPage loads one page and the collection total concurrently.
func (r *resolver) buildRecordPage(ctx context.Context, page filter.Page) (map[string]interface{}, error) {
	page = page.Normalize()

	var (
		items []domain.IPRecord
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = r.svc.ListAll(gctx, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = r.svc.CountAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	currentPage := page.Page
	if currentPage == 0 {
		currentPage = 1
	}

	return map[string]interface{}{
		"page":       currentPage,
		"pageSize":   len(items),
		"totalCount": int(total),
		"items":      buildRecordItems(items),
	}, nil
}

func pageFromArgs(args map[string]interface{}) filter.Page {
	var page filter.Page
	if raw, ok := args["limit"].(int); ok {
		page.Limit = raw
	}
	if raw, ok := args["page"].(int); ok {
		page.Page = raw
	}
	return page
}

func stringFromArgs(args map[string]interface{}, name string) string {
	value, _ := args[name].(string)
	return value
}

func recordList(items []domain.IPRecord, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return buildRecordItems(items), nil
}

func countValue(count int64, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return int(count), nil
}

func buildRecordItems(items []domain.IPRecord) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, buildRecord(item))
	}
	return out
}

func buildRecord(record domain.IPRecord) map[string]interface{} {
	sources := make([]map[string]interface{}, 0, len(record.Sources))
	for _, source := range record.Sources {
		sources = append(sources, map[string]interface{}{
			"source":  source.Source,
			"updated": source.Updated,
		})
	}

	var splunk interface{}
	if record.Host.Splunk != nil {
		splunk = map[string]interface{}(record.Host.Splunk)
	}

	return map[string]interface{}{
		"id":         record.ID,
		"ip":         record.IP,
		"version":    record.Version,
		"created":    record.Created,
		"updated":    record.Updated,
		"reverseDns": record.ReverseDNS,
		"zones":      nonNilStrings(record.Zones),
		"domains":    nonNilStrings(record.Domains),
		"sources":    sources,
		"host": map[string]interface{}{
			"hostingPartner": record.Host.HostingPartner,
			"hostCidr":       record.Host.HostCIDR,
			"notes":          record.Host.Notes,
			"splunk":         splunk,
		},
		"tracked": record.Tracked(),
		"managed": record.Managed(),
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
