package repository

// DefaultVariants returns the listing query variants from the current schema
// down to the smallest column set every deployment has. The minimal variant
// has no hub or status column, so it filters on region and text only.
func DefaultVariants() []QueryVariant {
	return []QueryVariant{
		{
			Name: "full",
			Columns: []string{
				"id::text AS id", "hub", "title", "description", "category", "county",
				"price::text AS price", "view_count AS views", "created_at", "updated_at",
				"seller_id::text AS seller_id",
			},
			TextColumns:  []string{"title", "description", "category"},
			FilterHub:    true,
			FilterStatus: true,
			FilterCounty: true,
			OrderBy:      "created_at DESC",
		},
		{
			Name: "legacy_views",
			Columns: []string{
				"id::text AS id", "hub", "title", "description", "category", "county",
				"price::text AS price", "views", "created_at", "updated_at",
				"seller_id::text AS seller_id",
			},
			TextColumns:  []string{"title", "description", "category"},
			FilterHub:    true,
			FilterStatus: true,
			FilterCounty: true,
			OrderBy:      "created_at DESC",
		},
		{
			Name: "minimal",
			Columns: []string{
				"id::text AS id", "title", "description", "county", "created_at",
				"seller_id::text AS seller_id",
			},
			TextColumns:  []string{"title", "description"},
			FilterCounty: true,
			OrderBy:      "created_at DESC",
		},
	}
}
