// Package iojson writes the indented JSON that --json command flags print.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteWith writes obj to w as indented JSON followed by a newline. When obj
// cannot be marshaled a JSON error object is written to ew instead and the
// marshal error is returned.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintln(ew, marshalFailure(err))
		return fmt.Errorf("marshal json output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// marshalFailure builds the error object by hand since the value that failed
// to marshal cannot be reused.
func marshalFailure(err error) string {
	msg, _ := json.Marshal(err.Error())
	return fmt.Sprintf(`{"message":"failed to encode output","data":{"json_error":%s}}`, msg)
}
