package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema describes a lessons document: branch name to lesson array.
// Quizzes must have at least one question.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": { "$ref": "#/definitions/lesson" }
  },
  "definitions": {
    "lesson": {
      "type": "object",
      "required": ["quiz"],
      "properties": {
        "title": { "type": "string" },
        "video": { "type": "string" },
        "quiz": {
          "type": "array",
          "minItems": 1,
          "items": { "$ref": "#/definitions/question" }
        }
      }
    },
    "question": {
      "type": "object",
      "required": ["question", "options", "answer"],
      "properties": {
        "question": { "type": "string" },
        "options": {
          "type": "array",
          "minItems": 1,
          "items": { "type": "string" }
        },
        "answer": { "type": "integer", "minimum": 0 }
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		panic(fmt.Sprintf("catalog: compiling document schema: %v", err))
	}
	return s
}

// Validate checks raw JSON against the document schema and that every answer
// points at an existing option. It returns the decoded catalog on success.
func Validate(raw []byte) (Catalog, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: document is not valid JSON", ErrInvalidCatalog)
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
	}

	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	for branch, lessons := range c {
		for i, lesson := range lessons {
			for q, question := range lesson.Quiz {
				if question.Answer >= len(question.Options) {
					return nil, fmt.Errorf("%w: %s[%d] question %d: answer %d out of range (%d options)",
						ErrInvalidCatalog, branch, i, q, question.Answer, len(question.Options))
				}
			}
		}
	}

	if c == nil {
		c = Catalog{}
	}
	return c, nil
}
