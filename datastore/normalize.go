package datastore

import (
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizeDocument turns a decoded document into plain Go values:
// maps, slices, strings, numbers and booleans only
func normalizeDocument(doc bson.M) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return normalizeDocument(val)
	case map[string]interface{}:
		return normalizeDocument(val)
	case bson.D:
		out := make(Document, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		return normalizeArray(val)
	case []interface{}:
		return normalizeArray(val)
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return val.String()
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(val.Data)
	case primitive.Regex:
		return val.String()
	case primitive.JavaScript:
		return string(val)
	case primitive.Symbol:
		return string(val)
	case primitive.CodeWithScope:
		return val.String()
	case primitive.DBPointer:
		return val.String()
	case primitive.Timestamp:
		return Document{"t": val.T, "i": val.I}
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.MinKey:
		return "MinKey"
	case primitive.MaxKey:
		return "MaxKey"
	}
	return v
}

func normalizeArray(arr []interface{}) []interface{} {
	out := make([]interface{}, len(arr))
	for i, v := range arr {
		out[i] = normalize(v)
	}
	return out
}
