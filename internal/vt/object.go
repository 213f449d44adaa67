package vt

// Object is an API object as returned under "data".
type Object struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Relationship is the relationship summary attached to an object when
// relationship counters are requested.
type Relationship struct {
	Meta RelationshipMeta `json:"meta"`
}

// RelationshipMeta carries the server-reported count of related objects.
type RelationshipMeta struct {
	Count int `json:"count"`
}

type objectResponse struct {
	Data  *Object   `json:"data"`
	Error *apiError `json:"error"`
}

type collectionResponse struct {
	Data []*Object `json:"data"`
	Meta struct {
		Cursor string `json:"cursor"`
	} `json:"meta"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
