package utils

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodePayload converts a loosely decoded message payload (usually a
// map[string]any) into T. A nil payload yields the zero T.
func DecodePayload[T any](v any) (T, error) {
	var result T
	if v == nil {
		return result, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return result, errors.WithMessage(err, "marshal json")
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return *new(T), errors.WithMessage(err, "unmarshal json")
	}
	return result, nil
}

func WriteJson(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return errors.WithMessage(err, "encode json")
	}
	return nil
}

func ReadJson[T any](r io.Reader) (T, error) {
	var result T
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return *new(T), errors.WithMessage(err, "decode json")
	}
	return result, nil
}
