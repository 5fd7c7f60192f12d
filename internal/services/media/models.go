package media

// SaveResult is returned after a successful upload.
type SaveResult struct {
	// Name is the normalized name the content was stored under.
	Name string `json:"Name"`

	// URL is the public URL of the stored blob.
	URL string `json:"URL"`

	// Size is the number of bytes stored.
	Size int64 `json:"ContentLength"`
}

// URLResult answers a URL lookup. It never implies the blob exists.
type URLResult struct {
	Name string `json:"Name"`
	URL  string `json:"URL"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
