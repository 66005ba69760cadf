package server

import (
	"net/http"

	gqlhandler "github.com/graphql-go/handler"

	gqlschema "github.com/eitanMobb/marinus-sm/internal/graphql"
)

func newGraphQLHandler(deps Dependencies) (http.Handler, error) {
	schema, err := gqlschema.NewSchema(deps.Records, deps.Geo)
	if err != nil {
		return nil, err
	}

	base := gqlhandler.New(&gqlhandler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: false,
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base.ContextHandler(r.Context(), w, r)
	}), nil
}
