package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewObjectID generates a new ObjectID in its hex form, used as document _id.
func NewObjectID() string {
	return bson.NewObjectID().Hex()
}

func now() time.Time {
	return time.Now().UTC()
}
