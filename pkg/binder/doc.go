// Package binder binds URL query parameters into tagged structs.
//
// Fields are matched by their `query` tag, or by the lowercased field name
// when the tag is missing. A tag of "-" skips the field. Pointer fields stay
// nil unless the parameter is present, which makes them usable for optional
// filters. Slice fields accept repeated parameters and comma-separated lists.
//
//	type listRequest struct {
//	    Status []string `query:"status"`
//	    Limit  int      `query:"limit"`
//	    Starred *bool   `query:"starred"`
//	}
//
//	var req listRequest
//	if err := binder.Query()(r, &req); err != nil {
//	    // errors.Is(err, binder.ErrInvalidQuery)
//	}
package binder
