package rows

import (
	"github.com/graphql-go/graphql"
)

// GetQueryFields returns the result set queries to be mounted in the root schema.
func GetQueryFields() graphql.Fields {
	return graphql.Fields{
		"rows": &graphql.Field{
			Type: graphql.NewList(RowType),
			Args: graphql.FieldConfigArgument{
				"sort": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				"desc": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				"tag":  &graphql.ArgumentConfig{Type: TagEnum},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				sort, _ := p.Args["sort"].(string)
				desc, _ := p.Args["desc"].(bool)
				tag, _ := p.Args["tag"].(string)
				return ResolveRows(p.Context, sort, desc, tag)
			},
		},
		"summary": &graphql.Field{
			Type: SummaryType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveSummary(p.Context)
			},
		},
	}
}
