package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/db/ent/schema/utils"
)

var doubleColumn = map[string]string{dialect.Postgres: "double precision", dialect.SQLite: "double precision"}

type ExposureLimit struct{ ent.Schema }

func (ExposureLimit) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "exposure_limits"},
	}
}

func (ExposureLimit) Fields() []ent.Field {
	return []ent.Field{
		tenantField(),
		// lower(analyte); part of the primary key
		field.String("analyte_key").NotEmpty(),
		field.String("analyte").NotEmpty(),
		field.String("units").Default(""),
		field.Float("al").SchemaType(doubleColumn),
		field.Float("pel").SchemaType(doubleColumn),
		field.Float("stel").Optional().Nillable().SchemaType(doubleColumn),
		field.Float("el").Optional().Nillable().SchemaType(doubleColumn),
	}
}

func (ExposureLimit) Edges() []ent.Edge {
	return []ent.Edge{
		tenantEdge("exposure_limits"),
	}
}

type Sample struct{ ent.Schema }

func (Sample) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "samples"},
	}
}

func (Sample) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		tenantField(),
		field.UUID("project_id", uuid.UUID{}).SchemaType(textColumn),
		field.UUID("task_id", uuid.UUID{}).SchemaType(textColumn),
		field.UUID("personnel_id", uuid.UUID{}).SchemaType(textColumn),
		field.String("description").Default(""),
		field.String("sample_type").Validate(utils.EnumValidator(constants.SampleTypesAsStrings()...)),
		// "2006-01-02 15:04"
		field.String("start_time"),
		field.String("stop_time"),
		field.Float("flow_rate").SchemaType(doubleColumn),
		// derived from start/stop/flow, never taken from input
		field.Int("duration"),
		field.Float("volume").SchemaType(doubleColumn),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Sample) Edges() []ent.Edge {
	return []ent.Edge{
		tenantEdge("samples"),
		edge.From("project", Project.Type).Ref("samples").Field("project_id").Required().Unique(),
		edge.From("task", Task.Type).Ref("samples").Field("task_id").Required().Unique(),
		edge.From("personnel", Personnel.Type).Ref("samples").Field("personnel_id").Required().Unique(),
		edge.To("result", Result.Type).Unique(),
	}
}

type Result struct{ ent.Schema }

func (Result) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "results"},
	}
}

func (Result) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		field.UUID("sample_id", uuid.UUID{}).Unique().SchemaType(textColumn),
		field.String("analyte").NotEmpty(),
		field.Float("concentration").Optional().Nillable().SchemaType(doubleColumn),
		field.String("status").Validate(utils.EnumValidator(constants.ResultStatusesAsStrings()...)),
		field.String("method").Default(""),
		field.String("units").Default(""),
		field.Float("reporting_limit").Optional().Nillable().SchemaType(doubleColumn),
		field.String("lab").Default(""),
	}
}

func (Result) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("sample", Sample.Type).Ref("result").Field("sample_id").Required().Unique(),
	}
}
