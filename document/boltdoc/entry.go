package boltdoc

import (
	"fmt"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/x/bboltx"
	"github.com/dogmatiq/docjournal/offset"
	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
)

var (
	docsKey    = []byte("docs")
	etagsKey   = []byte("etags")
	indexesKey = []byte("indexes")
	metaKey    = []byte("meta")
	etagKey    = []byte("etag")
)

// entry is the stored representation of a document.
type entry struct {
	Body         []byte            `cbor:"1,keyasint"`
	ChangeVector map[string]uint64 `cbor:"2,keyasint"`
	Etag         uint64            `cbor:"3,keyasint"`
}

// loadDocument loads the document with the given ID from the database bucket.
func loadDocument(root *bbolt.Bucket, id string) (document.Document, bool) {
	docs := root.Bucket(docsKey)
	if docs == nil {
		return document.Document{}, false
	}

	data := docs.Get([]byte(id))
	if data == nil {
		return document.Document{}, false
	}

	return unmarshalDocument(id, data), true
}

// unmarshalDocument decodes a stored document.
func unmarshalDocument(id string, data []byte) document.Document {
	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		panic(bboltx.PanicSentinel{
			Cause: fmt.Errorf("document %q is corrupt: %w", id, err),
		})
	}

	return document.Document{
		ID:           id,
		Body:         e.Body,
		ChangeVector: offset.Vector(e.ChangeVector),
		Etag:         e.Etag,
	}
}

// storeDocument writes a document to the database bucket, assigning it the
// next etag for the given replica.
func storeDocument(
	root *bbolt.Bucket,
	replica string,
	id string,
	body []byte,
) {
	docs := bboltx.CreateBucketIfNotExists(root, docsKey)
	etags := bboltx.CreateBucketIfNotExists(root, etagsKey)
	meta := bboltx.CreateBucketIfNotExists(root, metaKey)

	cv := offset.Vector{}

	if prev, ok := loadDocument(root, id); ok {
		bboltx.Delete(etags, bboltx.MarshalUint64(prev.Etag))
		cv = prev.ChangeVector
	}

	etag := bboltx.GetUint64(meta, etagKey) + 1
	bboltx.PutUint64(meta, etagKey, etag)

	cv = offset.Merge(cv, offset.Vector{replica: etag})

	data, err := cbor.Marshal(entry{
		Body:         body,
		ChangeVector: cv,
		Etag:         etag,
	})
	bboltx.Must(err)

	bboltx.Put(docs, []byte(id), data)
	bboltx.Put(etags, bboltx.MarshalUint64(etag), []byte(id))
}

// deleteDocument removes a document from the database bucket.
func deleteDocument(root *bbolt.Bucket, id string) bool {
	prev, ok := loadDocument(root, id)
	if !ok {
		return false
	}

	bboltx.Delete(root.Bucket(docsKey), []byte(id))
	bboltx.Delete(root.Bucket(etagsKey), bboltx.MarshalUint64(prev.Etag))

	return true
}
