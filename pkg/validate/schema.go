package validate

// gamebookSchema is the JSON Schema half of the Node/Portable Validator
// (spec.md §4.N): sections required; each section needs id+sequence; legacy
// top-level fields are forbidden; sequence entries are the tagged union,
// with itemsAll requiring at least two items. The pass/fail/has/missing/
// lucky/unlucky branch fields $ref the shared endpoint definition, which
// enforces exactly one of targetSection/terminal; a choice event's own
// flattened targetSection/terminal can't both be set either, though
// requiring at least one of them only for kind=="choice" needs the logic
// pass (checkTargetIntegrity), since draft-4 has no conditional-on-sibling-
// value keyword to express that here.
const gamebookSchema = `{
  "type": "object",
  "required": ["metadata", "sections"],
  "properties": {
    "metadata": {
      "type": "object",
      "required": ["startSection", "validatorVersion", "expected_range"],
      "properties": {
        "startSection": {"type": "string"},
        "validatorVersion": {"type": "string"},
        "expected_range": {
          "type": "array",
          "items": {"type": "integer"},
          "minItems": 2,
          "maxItems": 2
        }
      }
    },
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "sequence"],
        "properties": {
          "id": {"type": "string"},
          "sequence": {
            "type": "array",
            "items": {"$ref": "#/definitions/event"}
          }
        },
        "not": {
          "anyOf": [
            {"required": ["navigation"]},
            {"required": ["combat"]},
            {"required": ["items"]},
            {"required": ["statModifications"]},
            {"required": ["diceChecks"]},
            {"required": ["deathConditions"]}
          ]
        }
      }
    }
  },
  "definitions": {
    "endpoint": {
      "type": "object",
      "properties": {
        "targetSection": {"type": "string"},
        "terminal": {"type": "string"}
      },
      "oneOf": [
        {"required": ["targetSection"], "not": {"required": ["terminal"]}},
        {"required": ["terminal"], "not": {"required": ["targetSection"]}}
      ]
    },
    "event": {
      "type": "object",
      "required": ["kind"],
      "properties": {
        "kind": {"type": "string"},
        "itemsAll": {
          "type": "array",
          "minItems": 2,
          "items": {"type": "string"}
        },
        "pass": {"$ref": "#/definitions/endpoint"},
        "fail": {"$ref": "#/definitions/endpoint"},
        "has": {"$ref": "#/definitions/endpoint"},
        "missing": {"$ref": "#/definitions/endpoint"},
        "lucky": {"$ref": "#/definitions/endpoint"},
        "unlucky": {"$ref": "#/definitions/endpoint"}
      },
      "not": {
        "required": ["targetSection", "terminal"]
      }
    }
  }
}`
