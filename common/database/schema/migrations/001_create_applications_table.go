package migrations

import "jobsnap/common/database/schema"

var CreateApplicationsTable = schema.Migration{
	Version:     1,
	Description: "Create applications table",
	Up: `
		CREATE TABLE IF NOT EXISTS applications (
			id UUID,
			capture_id UUID,
			date_applied String,
			company String,
			job_title String,
			position_type String,
			location String,
			salary String,
			schedule String,
			experience_level String,
			url String,
			status LowCardinality(String),
			description String,
			captured_at DateTime
		) ENGINE = ReplacingMergeTree(captured_at)
		PARTITION BY toYYYYMM(captured_at)
		ORDER BY (id)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS applications`,
}

// All lists every migration in version order.
var All = []schema.Migration{
	CreateApplicationsTable,
}
