package docstore

import (
	"go.mongodb.org/mongo-driver/bson"
)

// bsonD builds an ordered document from alternating keys and values
func bsonD(kv ...interface{}) bson.D {
	d := make(bson.D, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		d = append(d, bson.E{Key: kv[i].(string), Value: kv[i+1]})
	}
	return d
}
