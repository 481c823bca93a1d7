package binder

import (
	"net/http"
	"net/url"
)

// Query returns a binder that fills v from the request URL query.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return Values(r.URL.Query(), v)
	}
}

// Values binds already parsed query values into v.
func Values(values url.Values, v any) error {
	return bindToStruct(v, "query", values, ErrInvalidQuery)
}
