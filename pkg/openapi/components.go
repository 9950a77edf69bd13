package openapi

import "maps"

// NewComponents returns the Error schema and the shared error responses that
// reference it.
func NewComponents() *Components {
	errorBody := func(description string) *Response {
		return ResponseJSON(description, "Error")
	}

	return &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":  errorBody("Invalid request"),
			"NotFound":    errorBody("Resource not found"),
			"Conflict":    errorBody("Operation conflicts with work in progress"),
			"TooLarge":    errorBody("Upload exceeds the size limit"),
			"BadGateway":  errorBody("Forensics service rejected or failed the call"),
			"Unavailable": errorBody("Backing store not configured or not ready"),
		},
	}
}

// AddSchemas merges schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}
