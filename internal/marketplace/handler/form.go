package handler

import "mime/multipart"

// firstFile returns the first uploaded file under the given form field, or
// nil when the field is absent.
func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	fhs := form.File[field]
	if len(fhs) == 0 {
		return nil
	}
	return fhs[0]
}
