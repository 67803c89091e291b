package datastore

import (
	"reflect"

	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// Document is a single record as returned by Read
type Document = map[string]interface{}

// mapping checks that an argument is a mapping and returns it in a form the
// driver can encode, with its number of fields. A nil argument was not
// supplied and yields a nil value and no error.
//
// Accepted: bson.D, bson.M, any map keyed by strings, and structs (or
// pointers to them), which are flattened using their bson tags.
func mapping(arg string, v interface{}) (interface{}, int, error) {
	switch m := v.(type) {
	case nil:
		return nil, 0, nil
	case bson.D:
		return m, len(m), nil
	case bson.M:
		return m, len(m), nil
	case map[string]interface{}:
		return m, len(m), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, 0, nil
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		m := make(bson.M, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, len(m), nil
	case rv.Kind() == reflect.Struct:
		s := structs.New(rv.Interface())
		s.TagName = "bson"
		m := s.Map()
		return m, len(m), nil
	}
	return nil, 0, errors.Errorf("%s must be a mapping, got %T", arg, v)
}

// required is mapping for arguments that must be supplied
func required(arg string, v interface{}) (interface{}, int, error) {
	m, n, err := mapping(arg, v)
	if err == nil && m == nil {
		err = errors.Errorf("%s is required", arg)
	}
	return m, n, err
}

// nonEmpty is mapping for arguments that must be supplied and hold at least one field
func nonEmpty(arg string, v interface{}) (interface{}, error) {
	m, n, err := required(arg, v)
	if err == nil && n == 0 {
		err = errors.Errorf("%s must be a non-empty mapping", arg)
	}
	return m, err
}
