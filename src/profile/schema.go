package profile

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchemaURL = "screen-label-overlay/profiles.schema.json"

const documentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["profiles"],
  "properties": {
    "profiles": {
      "type": "object",
      "minProperties": 1,
      "propertyNames": {"minLength": 1},
      "additionalProperties": {"$ref": "#/definitions/profile"}
    },
    "activeProfileName": {"type": "string"},
    "showOverlayOnStartup": {"type": "boolean"},
    "mainWindowGeometry": {}
  },
  "definitions": {
    "rgb": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0, "maximum": 255},
      "minItems": 3,
      "maxItems": 3
    },
    "point": {
      "type": "array",
      "items": {"type": "integer"},
      "minItems": 2,
      "maxItems": 2
    },
    "style": {
      "type": "object",
      "properties": {
        "family": {"type": "string"},
        "size": {"type": "integer"},
        "color": {"$ref": "#/definitions/rgb"},
        "outlineColor": {"$ref": "#/definitions/rgb"},
        "outlineWidth": {"type": "integer"}
      }
    },
    "profile": {
      "type": "object",
      "properties": {
        "style": {"$ref": "#/definitions/style"},
        "coordinates": {"type": "array", "items": {"$ref": "#/definitions/point"}}
      }
    }
  }
}`

var documentSchema = jsonschema.MustCompileString(documentSchemaURL, documentSchemaJSON)

func validateDocument(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return err
	}
	return documentSchema.Validate(instance)
}
