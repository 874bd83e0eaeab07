// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
)

// maxBodyBytes caps request bodies; none of the API's payloads are large.
const maxBodyBytes = 1 << 20

// requestSchemas holds compiled JSON Schemas for every request body the API
// accepts. Schemas are generated from the request structs so the structs stay
// the single source of truth.
type requestSchemas struct {
	register     *jschema.Schema
	login        *jschema.Schema
	googleLogin  *jschema.Schema
	updateMe     *jschema.Schema
	createRating *jschema.Schema
}

// compileSchemas builds the schema set. Called once at server construction.
func compileSchemas() (*requestSchemas, error) {
	s := &requestSchemas{}
	for _, target := range []struct {
		name  string
		model any
		dst   **jschema.Schema
	}{
		{"register", &registerRequest{}, &s.register},
		{"login", &loginRequest{}, &s.login},
		{"google_login", &googleLoginRequest{}, &s.googleLogin},
		{"update_me", &updateMeRequest{}, &s.updateMe},
		{"create_rating", &createRatingRequest{}, &s.createRating},
	} {
		compiled, err := compileSchema(target.name, target.model)
		if err != nil {
			return nil, err
		}
		*target.dst = compiled
	}
	return s, nil
}

// GenerateSchema generates the JSON Schema document for one request model.
// Exported for the gen-schema tool.
func GenerateSchema(name string, model any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(model)

	schema.ID = jsonschema.ID(schemaID(name))
	schema.Title = fmt.Sprintf("moodlog %s request", name)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_MARSHAL_FAILED").With("schema", name).Wrap(err)
	}
	return data, nil
}

// RequestModels lists every request body model by schema name.
// Exported for the gen-schema tool.
func RequestModels() map[string]any {
	return map[string]any{
		"register":      &registerRequest{},
		"login":         &loginRequest{},
		"google_login":  &googleLoginRequest{},
		"update_me":     &updateMeRequest{},
		"create_rating": &createRatingRequest{},
	}
}

func schemaID(name string) string {
	return "https://moodlog.dev/schemas/" + name + ".schema.json"
}

func compileSchema(name string, model any) (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema(name, model)
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.Code("SCHEMA_INVALID").With("schema", name).Wrap(err)
	}

	c := jschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, schemaData); err != nil {
		return nil, oops.Code("SCHEMA_INVALID").With("schema", name).Wrap(err)
	}
	compiled, err := c.Compile(resource)
	if err != nil {
		return nil, oops.Code("SCHEMA_INVALID").With("schema", name).Wrap(err)
	}
	return compiled, nil
}

// decodeBody reads the request body, validates it against the schema, and
// unmarshals it into dst. Every failure wraps auth.ErrValidation so the error
// mapper turns it into a 400.
func decodeBody(r *http.Request, schema *jschema.Schema, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return oops.Code("HTTP_BODY_UNREADABLE").
			Errorf("unable to read request body: %w", auth.ErrValidation)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return oops.Code("HTTP_BODY_NOT_JSON").
			Errorf("request body is not valid JSON: %w", auth.ErrValidation)
	}

	if err := schema.Validate(raw); err != nil {
		return oops.Code("HTTP_BODY_INVALID").
			With("detail", err.Error()).
			Errorf("request body failed validation: %w", auth.ErrValidation)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return oops.Code("HTTP_BODY_INVALID").
			Errorf("request body does not match the expected shape: %w", auth.ErrValidation)
	}
	return nil
}
