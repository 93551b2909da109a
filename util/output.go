package util

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// PrintJSON writes an indented JSON rendering of data to standard output.
func PrintJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "   ")
	if err != nil {
		return errors.Wrap(err, "problem writing data")
	}

	fmt.Println(string(out))
	return nil
}

// WriteJSON writes an indented JSON rendering of data to path.
func WriteJSON(path string, data interface{}) error {
	out, err := json.MarshalIndent(data, "", "   ")
	if err != nil {
		return errors.Wrap(err, "problem writing data")
	}

	return errors.WithStack(WriteBytes(path, append(out, '\n')))
}
