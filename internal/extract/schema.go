package extract

import (
	"github.com/invopop/jsonschema"

	"github.com/ent0n29/hrdesk/internal/hr"
)

// Schemas returns JSON Schemas for the two payload shapes the assistant may
// append to a reply, keyed by payload kind.
func Schemas() map[Kind]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return map[Kind]*jsonschema.Schema{
		KindRequest: reflector.Reflect(&RequestPayload{}),
		KindQuery:   reflector.Reflect(&hr.QueryDirective{}),
	}
}
