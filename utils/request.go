package utils

import (
	"encoding/json"
	"net/http"
)

// MaxJSONBodyBytes caps the size of a decoded request body.
const MaxJSONBodyBytes = 1 << 20

// DecodeJSONRequest decodes JSON from HTTP request body into the provided interface.
// Bodies over MaxJSONBodyBytes are rejected.
// Usage: var data MyType; if err := DecodeJSONRequest(r, &data); err != nil { ... }
func DecodeJSONRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxJSONBodyBytes)).Decode(v)
}
