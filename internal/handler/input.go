package handler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/sakif/blogsite/internal/apperror"
)

const maxBodyBytes = 1 << 20

// input is a submitted form, read from either an urlencoded/multipart
// body or a flat JSON object, so browsers and API clients share handlers.
type input struct {
	values url.Values
}

func readInput(w http.ResponseWriter, r *http.Request) (input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return input{}, apperror.ValidationFailed("", "request body is not a valid JSON object")
		}
		values := url.Values{}
		for k, v := range raw {
			switch v := v.(type) {
			case nil:
			case string:
				values.Set(k, v)
			default:
				values.Set(k, fmt.Sprint(v))
			}
		}
		return input{values: values}, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return input{}, apperror.ValidationFailed("", "could not read the submitted form")
		}
	default:
		if err := r.ParseForm(); err != nil {
			return input{}, apperror.ValidationFailed("", "could not read the submitted form")
		}
	}
	return input{values: r.PostForm}, nil
}

// get returns the field, or "" when it was not submitted.
func (in input) get(key string) string {
	return in.values.Get(key)
}

// opt distinguishes "not submitted" (nil) from "submitted empty".
func (in input) opt(key string) *string {
	if _, ok := in.values[key]; !ok {
		return nil
	}
	v := in.values.Get(key)
	return &v
}
