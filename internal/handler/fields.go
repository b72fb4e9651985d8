package handler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

const maxBodyBytes = 1 << 20

// readFields returns the submitted fields as raw strings. JSON numbers keep
// their literal text so that coercion stays with the assessment builder.
func readFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		parse := r.ParseForm
		if mediaType == "multipart/form-data" {
			parse = func() error { return r.ParseMultipartForm(maxBodyBytes) }
		}
		if err := parse(); err != nil {
			return nil, err
		}
		raw := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			raw[key] = r.PostForm.Get(key)
		}
		return raw, nil
	}

	var body map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	raw := make(map[string]string, len(body))
	for key, v := range body {
		switch val := v.(type) {
		case nil:
		case string:
			raw[key] = val
		case json.Number:
			raw[key] = val.String()
		default:
			return nil, fmt.Errorf("field %s must be a string or a number", key)
		}
	}
	return raw, nil
}
