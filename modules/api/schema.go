package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const createTaskSchema = `{
	"type": "object",
	"required": ["title", "description"],
	"properties": {
		"title":       {"type": "string", "minLength": 1, "maxLength": 120},
		"description": {"type": "string", "minLength": 1, "maxLength": 2000},
		"category":    {"type": "string", "maxLength": 40},
		"price":       {"type": "string", "maxLength": 32},
		"zip":         {"type": "string", "maxLength": 16}
	}
}`

const profileSchema = `{
	"type": "object",
	"required": ["name", "role", "zip"],
	"properties": {
		"name":     {"type": "string", "minLength": 1, "maxLength": 80},
		"role":     {"type": "string", "minLength": 1},
		"zip":      {"type": "string", "minLength": 1, "maxLength": 16},
		"skills":   {"type": "string", "maxLength": 500},
		"password": {"type": "string", "maxLength": 72}
	}
}`

var (
	createTaskValidator = mustSchema(createTaskSchema)
	profileValidator    = mustSchema(profileSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid JSON schema: %v", err))
	}
	return schema
}

// validatePayload checks body against schema and joins every violation
// into one message.
func validatePayload(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
}
