// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaBaseURL prefixes every request schema $id.
const SchemaBaseURL = "https://inkwell.dev/schemas/"

// Request bodies. Field presence and format rules live in the auth
// validators; the schemas only pin the shape.
type (
	LoginRequest struct {
		Email    string `json:"email" jsonschema:"maxLength=320"`
		Password string `json:"password" jsonschema:"maxLength=1024"`
	}
	SessionRequest struct {
		SessionID string `json:"sessionId" jsonschema:"maxLength=128"`
	}
	EmailRequest struct {
		Email string `json:"email" jsonschema:"maxLength=320"`
	}
	ResetTokenRequest struct {
		Token string `json:"token" jsonschema:"maxLength=512"`
	}
	ResetPasswordRequest struct {
		Token           string `json:"token" jsonschema:"maxLength=512"`
		Password        string `json:"password" jsonschema:"maxLength=1024"`
		ConfirmPassword string `json:"confirmPassword" jsonschema:"maxLength=1024"`
	}
)

// requestTypes maps schema names to the request each operation accepts.
var requestTypes = map[string]any{
	"login":          &LoginRequest{},
	"session":        &SessionRequest{},
	"email":          &EmailRequest{},
	"reset-token":    &ResetTokenRequest{},
	"reset-password": &ResetPasswordRequest{},
}

// GenerateSchemas returns the indented JSON schema of every request body,
// keyed by name.
func GenerateSchemas() (map[string][]byte, error) {
	out := make(map[string][]byte, len(requestTypes))
	for name, v := range requestTypes {
		data, err := generateSchema(name, v)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

func generateSchema(name string, v any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(v)
	schema.ID = jsonschema.ID(SchemaBaseURL + name + ".schema.json")
	schema.Title = "Inkwell " + name + " request"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").With("schema", name).Wrap(err)
	}
	return data, nil
}

// validator checks raw request bodies against a compiled schema.
type validator struct {
	once   sync.Once
	name   string
	schema *jschema.Schema
	err    error
}

func newValidator(name string) *validator {
	return &validator{name: name}
}

func (v *validator) compile() {
	req, ok := requestTypes[v.name]
	if !ok {
		v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", v.name).Errorf("unknown request schema")
		return
	}
	data, err := generateSchema(v.name, req)
	if err != nil {
		v.err = err
		return
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", v.name).Wrap(err)
		return
	}
	url := SchemaBaseURL + v.name + ".schema.json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", v.name).Wrap(err)
		return
	}
	v.schema, v.err = c.Compile(url)
	if v.err != nil {
		v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", v.name).Wrap(v.err)
	}
}

// Validate reports whether body is JSON matching the schema. A non-nil
// error means the schema itself could not be built.
func (v *validator) Validate(body []byte) (bool, error) {
	v.once.Do(v.compile)
	if v.err != nil {
		return false, v.err
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return false, nil
	}
	return v.schema.Validate(inst) == nil, nil
}
