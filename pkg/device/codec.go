package device

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

var ErrMalformedReport = errors.New("malformed status report")

// DecodeReport parses a JSON or CBOR encoded report. CBOR decoding falls
// back to the json struct tags.
func DecodeReport(contentType string, data []byte) (Report, error) {
	var (
		r   Report
		err error
	)

	switch contentType {
	case ContentTypeCBOR:
		err = cbor.Unmarshal(data, &r)
	case ContentTypeJSON, "":
		err = json.Unmarshal(data, &r)
	default:
		return Report{}, fmt.Errorf("%w: unsupported content type %q", ErrMalformedReport, contentType)
	}
	if err != nil {
		return Report{}, errors.Join(ErrMalformedReport, err)
	}

	return r, nil
}

// SniffContentType guesses the encoding of a payload received without
// headers, as on MQTT. JSON reports are objects, so anything else is
// treated as CBOR.
func SniffContentType(data []byte) string {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return ContentTypeJSON
		default:
			return ContentTypeCBOR
		}
	}

	return ContentTypeJSON
}
