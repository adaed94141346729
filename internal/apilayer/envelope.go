package apilayer

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

const successKey = "success"

// Decode validates the success envelope and decodes envelope[payloadKey] into T.
// A value is returned only when every check passed.
func Decode[T any](envelope any, payloadKey string) (T, error) {
	var result T

	fields, ok := envelope.(map[string]any)
	if !ok {
		return result, &EnvelopeError{Reason: "envelope is not a JSON object"}
	}

	rawSuccess, ok := fields[successKey]
	if !ok {
		return result, &EnvelopeError{Reason: "missing success flag"}
	}
	success, ok := rawSuccess.(bool)
	if !ok {
		return result, &EnvelopeError{Reason: "success flag has wrong type"}
	}
	if !success {
		return result, newAPIError(fields)
	}

	payload, ok := fields[payloadKey]
	if !ok {
		return result, &EnvelopeError{Reason: "missing payload key " + payloadKey}
	}

	shape := fmt.Sprintf("%T", result)
	if payload == nil {
		return result, &DecodeError{Key: payloadKey, Shape: shape, Err: fmt.Errorf("payload is null")}
	}

	if path, found := findNull(payload, payloadKey); found {
		return result, &DecodeError{Key: payloadKey, Shape: shape, Err: fmt.Errorf("%s is null", path)}
	}

	// ErrorUnset rejects objects missing a field of a struct target.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &result,
		TagName:    "json",
		ErrorUnset: true,
	})
	if err != nil {
		return result, &DecodeError{Key: payloadKey, Shape: shape, Err: err}
	}
	if err := decoder.Decode(payload); err != nil {
		var zero T
		return zero, &DecodeError{Key: payloadKey, Shape: shape, Err: err}
	}

	return result, nil
}

// findNull returns the path of the first JSON null nested in value.
// mapstructure leaves the zero value for nil inputs, so nulls are rejected up front.
func findNull(value any, path string) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return path, true
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(typed)) {
			if nullPath, found := findNull(typed[key], path+"."+key); found {
				return nullPath, true
			}
		}
	case []any:
		for index, element := range typed {
			if nullPath, found := findNull(element, path+"["+strconv.Itoa(index)+"]"); found {
				return nullPath, true
			}
		}
	}
	return "", false
}
