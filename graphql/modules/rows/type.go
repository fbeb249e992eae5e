// Package rows defines the GraphQL types for the triage result set.
package rows

import (
	"github.com/graphql-go/graphql"
)

// TagEnum lists the row tags that can be filtered on
var TagEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "RowTag",
	Values: graphql.EnumValueConfigMap{
		"KEV":      &graphql.EnumValueConfig{Value: "KEV"},
		"PATCH":    &graphql.EnumValueConfig{Value: "PATCH"},
		"CRITICAL": &graphql.EnumValueConfig{Value: "CRITICAL"},
		"HIGH":     &graphql.EnumValueConfig{Value: "HIGH"},
		"MEDIUM":   &graphql.EnumValueConfig{Value: "MEDIUM"},
		"LOW":      &graphql.EnumValueConfig{Value: "LOW"},
		"NONE":     &graphql.EnumValueConfig{Value: "NONE"},
	},
})

// RowType is one enrichment row with its display tags
var RowType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EnrichmentRow",
	Fields: graphql.Fields{
		"cve_id":                 &graphql.Field{Type: graphql.String},
		"cvss_base":              &graphql.Field{Type: graphql.Float},
		"epss":                   &graphql.Field{Type: graphql.Float},
		"exploited_in_wild":      &graphql.Field{Type: graphql.String},
		"affected_product":       &graphql.Field{Type: graphql.String},
		"version":                &graphql.Field{Type: graphql.String},
		"detected_on_asset":      &graphql.Field{Type: graphql.String},
		"description_short":      &graphql.Field{Type: graphql.String},
		"remediation_steps":      &graphql.Field{Type: graphql.String},
		"patch_url":              &graphql.Field{Type: graphql.String},
		"workaround":             &graphql.Field{Type: graphql.String},
		"references":             &graphql.Field{Type: graphql.String},
		"owner_suggested":        &graphql.Field{Type: graphql.String},
		"priority_score":         &graphql.Field{Type: graphql.Float},
		"suggested_ticket_title": &graphql.Field{Type: graphql.String},
		"suggested_ticket_body":  &graphql.Field{Type: graphql.String},
		"tags":                   &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

// SummaryType aggregates the current result set
var SummaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RowSummary",
	Fields: graphql.Fields{
		"total":        &graphql.Field{Type: graphql.Int},
		"kev_count":    &graphql.Field{Type: graphql.Int},
		"patch_count":  &graphql.Field{Type: graphql.Int},
		"max_priority": &graphql.Field{Type: graphql.Float},
		"loading":      &graphql.Field{Type: graphql.Boolean},
	},
})
