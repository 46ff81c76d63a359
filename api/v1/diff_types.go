package v1

// Multipart field names accepted by POST /diff.
const (
	FieldCurrent    = "current"
	FieldReference  = "reference"
	FieldThreshold  = "threshold"
	FieldMarkColor  = "markColor"
	FieldMarkAmount = "markAmount"
	FieldFormat     = "format"
)

// DiffResponse is the body returned by POST /diff.
type DiffResponse struct {
	// DiffData is the base64 encoded diff image in the requested format
	DiffData string `json:"diffData"`
	// DiffAmount is the fraction of highlighted pixels (0.0 to 1.0)
	DiffAmount float64 `json:"diffAmount"`
	// Width and Height of the diff image, always those of the current image
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DiffOutput is what the diff CLI prints on stdout.
type DiffOutput struct {
	DiffPath   string  `json:"diffPath"`
	DiffAmount float64 `json:"diffAmount"`
}
