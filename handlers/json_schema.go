package handlers

import "github.com/xeipuuv/gojsonschema"

const fetchSourceRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"url": { "type": "string", "format": "uri" },
		"quality": { "type": "string" }
	},
	"required": [ "url" ],
	"additionalProperties": false
}`

const processJobRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"source_id": { "type": "string", "minLength": 1 },
		"language": { "type": "string" },
		"target_duration": { "type": "string", "enum": [ "short", "medium", "long", "extended", "any", "" ] },
		"style": { "type": "string", "enum": [ "balanced", "funny", "educational", "dramatic", "controversial", "" ] },
		"use_hook": { "type": "boolean" },
		"auto_caption": { "type": "boolean" },
		"aspect_ratio": { "type": "string" }
	},
	"required": [ "source_id" ],
	"additionalProperties": false
}`

var inputSchemas = map[string]string{
	"FetchSource": fetchSourceRequestSchemaDefinition,
	"ProcessJob":  processJobRequestSchemaDefinition,
}

func compileJSONSchemas() map[string]*gojsonschema.Schema {
	compiled := make(map[string]*gojsonschema.Schema, len(inputSchemas))
	for name, text := range inputSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(text))
		if err != nil {
			panic(err)
		}
		compiled[name] = schema
	}
	return compiled
}

var inputSchemasCompiled = compileJSONSchemas()
