/*
Package mongodataset provides loading of training datasets from a
MongoDB collection. Every document in the collection is expected to
carry a "features" array of numbers (null entries map to NaN) and an
integer "label". Documents are read ordered by _id so sample indices
are reproducible across runs.
*/
package mongodataset

import (
	"context"
	"fmt"
	"math"

	"github.com/MaiRajborirug/SPORF/dataset"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

type sampleDoc struct {
	Features []*float64 `bson:"features"`
	Label    int        `bson:"label"`
}

/*
Read takes a context, an mgo session, the names of a database and a
collection and returns the dataset read from the collection or an
error.
*/
func Read(ctx context.Context, session *mgo.Session, db, collection string) (*dataset.Dataset, error) {
	var x [][]float64
	var y []int
	iter := session.DB(db).C(collection).Find(bson.M{}).Sort("_id").Iter()
	var doc sampleDoc
	for iter.Next(&doc) {
		if err := ctx.Err(); err != nil {
			iter.Close()
			return nil, err
		}
		features := make([]float64, len(doc.Features))
		for i, f := range doc.Features {
			if f == nil {
				features[i] = math.NaN()
			} else {
				features[i] = *f
			}
		}
		x = append(x, features)
		y = append(y, doc.Label)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterating samples of %s.%s: %v", db, collection, err)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("collection %s.%s has no samples", db, collection)
	}
	return dataset.New(x, y)
}
