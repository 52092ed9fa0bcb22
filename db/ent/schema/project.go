package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

var textColumn = map[string]string{dialect.Postgres: "text", dialect.SQLite: "text"}

type Project struct{ ent.Schema }

func (Project) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "projects"},
	}
}

func (Project) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		tenantField(),
		field.String("name").NotEmpty(),
		field.String("client").Default(""),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Project) Edges() []ent.Edge {
	return []ent.Edge{
		tenantEdge("projects"),
		edge.To("samples", Sample.Type),
	}
}

type Task struct{ ent.Schema }

func (Task) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "tasks"},
	}
}

func (Task) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		tenantField(),
		field.String("name").NotEmpty(),
		field.String("description").Default(""),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Task) Edges() []ent.Edge {
	return []ent.Edge{
		tenantEdge("tasks"),
		edge.To("samples", Sample.Type),
	}
}

type Personnel struct{ ent.Schema }

func (Personnel) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "personnel"},
	}
}

func (Personnel) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		tenantField(),
		field.String("name").NotEmpty(),
		field.String("employee_id").Default(""),
		// YYYY-MM-DD
		field.String("fit_test_due_date").Default(""),
		field.String("medical_clearance_due_date").Default(""),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Personnel) Edges() []ent.Edge {
	return []ent.Edge{
		tenantEdge("personnel"),
		edge.To("samples", Sample.Type),
	}
}
