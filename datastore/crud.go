package datastore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// Create inserts one document into collection. It reports true once the
// server has assigned the new document an identifier.
func (c *Client) Create(ctx context.Context, collection string, document interface{}) (created bool, err error) {
	defer func(start time.Time) { c.metrics.observe(opCreate, start, err) }(time.Now())

	doc, err := nonEmpty("document", document)
	if err != nil {
		return false, c.invalid(opCreate, collection, err)
	}
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return false, err
	}
	res, err := conn.database.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return false, c.failed(conn, opCreate, collection, err)
	}
	if res == nil || res.InsertedID == nil {
		return false, c.failed(conn, opCreate, collection, errors.New("no document identifier assigned"))
	}
	c.logger.Debugw("document created", "collection", collection, "id", normalize(res.InsertedID))
	return true, nil
}

// Read returns every document of collection matching query, in server order.
// A nil or empty query matches all documents. The documents hold plain
// values only: identifiers and dates come back as strings, see normalize.
//
// A query that matches nothing gives an empty slice and a nil error; a
// failure gives a nil slice and the error.
func (c *Client) Read(ctx context.Context, collection string, query interface{}) (docs []Document, err error) {
	defer func(start time.Time) { c.metrics.observe(opRead, start, err) }(time.Now())

	filter, _, err := mapping("query", query)
	if err != nil {
		return nil, c.invalid(opRead, collection, err)
	}
	if filter == nil {
		filter = bson.D{}
	}
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := conn.database.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, c.failed(conn, opRead, collection, err)
	}
	var raw []bson.M
	if err = cursor.All(ctx, &raw); err != nil {
		return nil, c.failed(conn, opRead, collection, err)
	}
	docs = make([]Document, 0, len(raw))
	for _, doc := range raw {
		docs = append(docs, normalizeDocument(doc))
	}
	return docs, nil
}

// Update sets the fields of values on every document of collection matching
// query; other fields are left untouched. An empty query matches all
// documents. It returns how many documents actually changed, which excludes
// matches that already held the values.
func (c *Client) Update(ctx context.Context, collection string, query, values interface{}) (modified int64, err error) {
	defer func(start time.Time) { c.metrics.observe(opUpdate, start, err) }(time.Now())

	filter, _, err := required("query", query)
	if err != nil {
		return 0, c.invalid(opUpdate, collection, err)
	}
	set, err := nonEmpty("update_values", values)
	if err != nil {
		return 0, c.invalid(opUpdate, collection, err)
	}
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return 0, err
	}
	res, err := conn.database.Collection(collection).UpdateMany(ctx, filter,
		bson.D{{Key: MongoSetOperator, Value: set}})
	if err != nil {
		return 0, c.failed(conn, opUpdate, collection, err)
	}
	c.logger.Debugw("documents updated", "collection", collection,
		"matched", res.MatchedCount, "modified", res.ModifiedCount)
	return res.ModifiedCount, nil
}

// Delete removes every document of collection matching query and returns how
// many were removed. The query must not be empty, a whole collection is
// never deleted by accident.
func (c *Client) Delete(ctx context.Context, collection string, query interface{}) (deleted int64, err error) {
	defer func(start time.Time) { c.metrics.observe(opDelete, start, err) }(time.Now())

	filter, err := nonEmpty("query", query)
	if err != nil {
		return 0, c.invalid(opDelete, collection, err)
	}
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return 0, err
	}
	res, err := conn.database.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, c.failed(conn, opDelete, collection, err)
	}
	return res.DeletedCount, nil
}
