//go:build headless

package main

func init() {
	compiledFeatures = append(compiledFeatures, "video:headless-only")
}

// NewEbitenOutput reports that this binary was built without a window
// backend. Use -headless.
func NewEbitenOutput() (VideoOutput, error) {
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   "built with the headless tag; no window backend available",
	}
}
