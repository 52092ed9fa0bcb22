package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/db/ent/schema/utils"
)

type Tenant struct{ ent.Schema }

func (Tenant) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "tenants"},
	}
}

func (Tenant) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		field.String("name").NotEmpty(),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Tenant) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("users", User.Type),
		edge.To("projects", Project.Type),
		edge.To("tasks", Task.Type),
		edge.To("personnel", Personnel.Type),
		edge.To("exposure_limits", ExposureLimit.Type),
		edge.To("samples", Sample.Type),
	}
}

type User struct{ ent.Schema }

func (User) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "users"},
	}
}

func (User) Fields() []ent.Field {
	return []ent.Field{
		idField(),
		tenantField(),
		field.String("email").NotEmpty(),
		field.String("name").NotEmpty(),
		field.String("role").Validate(utils.EnumValidator(constants.RolesAsStrings()...)),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (User) Edges() []ent.Edge {
	return []ent.Edge{
		tenantEdge("users"),
	}
}

// idField is the TEXT-stored uuid primary key shared by every table.
func idField() ent.Field {
	return field.UUID("id", uuid.UUID{}).
		Default(uuid.New).
		Immutable().
		SchemaType(textColumn)
}

func tenantField() ent.Field {
	return field.UUID("tenant_id", uuid.UUID{}).Immutable().SchemaType(textColumn)
}

func tenantEdge(ref string) ent.Edge {
	return edge.From("tenant", Tenant.Type).
		Ref(ref).
		Field("tenant_id").
		Required().
		Immutable().
		Unique()
}
