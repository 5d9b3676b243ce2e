package release

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// These schemas check the wire shape of an operator-authored manifest or
// rollout policy file before it is even unmarshalled into a Manifest or
// RolloutPolicy — catching a missing field or wrong JSON type with a
// pointer to the offending key, rather than the zero-value silently
// falling through to Validate()'s field-level checks.
const manifestSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["Format", "SchemaVersion", "ConnectorID", "Version", "Digest", "Channel", "MinHostVersion", "SignedBy", "Signature"],
  "properties": {
    "Format": {"type": "string"},
    "SchemaVersion": {"type": "string"},
    "ConnectorID": {"type": "string"},
    "Version": {"type": "string"},
    "Digest": {"type": "string"},
    "Channel": {"type": "string"},
    "RequiredCaps": {"type": ["array", "null"], "items": {"type": "string"}},
    "MinHostVersion": {"type": "string"},
    "SignedBy": {"type": "string"},
    "Signature": {
      "type": "object",
      "required": ["Algorithm", "KeyID", "Signature", "SignedFields"],
      "properties": {
        "Algorithm": {"type": "string"},
        "KeyID": {"type": "string"},
        "Signature": {"type": "string"},
        "SignedFields": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    }
  }
}`

const rolloutPolicySchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["Format", "SchemaVersion", "CanaryPercent", "MinCanaryDurationSecs", "SuccessThresholds", "RollbackRules"],
  "properties": {
    "Format": {"type": "string"},
    "SchemaVersion": {"type": "string"},
    "CanaryPercent": {"type": "integer", "minimum": 0, "maximum": 100},
    "MinCanaryDurationSecs": {"type": "integer", "minimum": 0},
    "SuccessThresholds": {
      "type": "object",
      "required": ["MinSuccessRateBPS", "MaxErrorRateBPS", "MinSamples", "WindowSecs"]
    },
    "RollbackRules": {
      "type": "object",
      "required": ["MaxErrorRateBPS", "MaxConsecutiveFailures", "MinSamples", "WindowSecs", "AutoRollback"]
    }
  }
}`

var manifestSchema = mustCompile("manifest", manifestSchemaJSON)
var rolloutPolicySchema = mustCompile("rollout-policy", rolloutPolicySchemaJSON)

func mustCompile(name, raw string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://zonemesh.schemas.local/release/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("release: invalid embedded schema %s: %v", name, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("release: failed to compile embedded schema %s: %v", name, err))
	}
	return compiled
}

// ValidateManifestJSON checks a raw manifest document against the embedded
// JSON Schema, independent of and prior to Manifest.Validate's field-level
// rules. It reports the first shape error (missing key, wrong JSON type)
// with a pointer into the document.
func ValidateManifestJSON(raw []byte) error {
	return validateShape(manifestSchema, raw)
}

// ValidateRolloutPolicyJSON checks a raw rollout policy document against
// the embedded JSON Schema, independent of and prior to
// RolloutPolicy.Validate's field-level rules.
func ValidateRolloutPolicyJSON(raw []byte) error {
	return validateShape(rolloutPolicySchema, raw)
}

func validateShape(schema *jsonschema.Schema, raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return invalid(fmt.Sprintf("not valid JSON: %v", err))
	}
	if err := schema.Validate(v); err != nil {
		return invalid(fmt.Sprintf("shape: %v", err))
	}
	return nil
}
