//go:build !opencv

package preprocess

import "errors"

// NewOpenCV reports that gocv support was not compiled in.
func NewOpenCV(p Params) (Preprocessor, error) {
	return nil, errors.New("opencv preprocessor: built without the opencv tag")
}
