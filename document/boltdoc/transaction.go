package boltdoc

import (
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

// transaction is an implementation of document.Tx for BoltDB.
type transaction struct {
	root    *bbolt.Bucket
	replica string
	changed []string
}

func (t *transaction) Load(id string) (_ document.Document, _ bool, err error) {
	defer bboltx.Recover(&err)

	doc, ok := loadDocument(t.root, id)
	return doc, ok, nil
}

func (t *transaction) Insert(id string, body []byte) (err error) {
	defer bboltx.Recover(&err)

	if _, ok := loadDocument(t.root, id); ok {
		return document.ErrDocumentExists
	}

	t.put(id, body)
	return nil
}

func (t *transaction) Put(id string, body []byte) (err error) {
	defer bboltx.Recover(&err)

	t.put(id, body)
	return nil
}

func (t *transaction) PutIfAbsent(id string, body []byte) (_ bool, err error) {
	defer bboltx.Recover(&err)

	if _, ok := loadDocument(t.root, id); ok {
		return false, nil
	}

	t.put(id, body)
	return true, nil
}

func (t *transaction) Delete(id string) (err error) {
	defer bboltx.Recover(&err)

	if deleteDocument(t.root, id) {
		t.changed = append(t.changed, id)
	}

	return nil
}

func (t *transaction) put(id string, body []byte) {
	storeDocument(t.root, t.replica, id, body)
	t.changed = append(t.changed, id)
}
