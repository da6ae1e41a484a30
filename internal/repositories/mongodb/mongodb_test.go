package mongodb

import (
	"fmt"
	"testing"

	"storefront/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// standalone wraps the mock client the way NewMongoDB does, without
// transactions, so the compensating write paths run.
func standalone(mt *mtest.T) *database.MongoDB {
	return &database.MongoDB{Client: mt.Client, Database: mt.DB, Config: &database.DatabaseConfig{}}
}

func ns(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func updatedResponse(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func insertedResponse() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1})
}

// modifiedResponse answers findAndModify; a nil doc means nothing matched.
func modifiedResponse(doc interface{}) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func countResponse(mt *mtest.T, collection string, n int64) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns(mt, collection), mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns(mt, collection), mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func duplicateKeyMessage(collection, index string) string {
	return fmt.Sprintf("E11000 duplicate key error collection: test.%s index: %s dup key: { : \"X\" }", collection, index)
}

func duplicateWriteResponse(collection, index string) bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: duplicateKeyMessage(collection, index),
	})
}

func duplicateCommandResponse(collection, index string) bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    11000,
		Name:    "DuplicateKey",
		Message: duplicateKeyMessage(collection, index),
	})
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}
