// Package graphql assembles the GraphQL schema served at /api/v1/graphql.
package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/ortelius/cve-triage/graphql/modules/rows"
	"github.com/ortelius/cve-triage/internal/triage"
)

// CreateSchema builds the root schema
func CreateSchema() (graphql.Schema, error) {
	fields := rows.GetQueryFields()
	fields["sortFields"] = &graphql.Field{
		Type: graphql.NewList(graphql.String),
		Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
			return triage.SortFields(), nil
		},
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: fields,
		}),
	})
}
