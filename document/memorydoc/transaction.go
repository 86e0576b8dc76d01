package memorydoc

import (
	"github.com/dogmatiq/docjournal/document"
)

// write is a change staged within a transaction.
type write struct {
	id      string
	body    []byte
	deleted bool
}

// transaction is an implementation of document.Tx that stages writes until
// the transaction is committed.
type transaction struct {
	view   map[string]document.Document
	staged map[string]write
	writes []write
}

func (t *transaction) Load(id string) (document.Document, bool, error) {
	if w, ok := t.staged[id]; ok {
		if w.deleted {
			return document.Document{}, false, nil
		}

		return document.Document{
			ID:   id,
			Body: cloneBytes(w.body),
		}, true, nil
	}

	doc, ok := t.view[id]
	return cloneDocument(doc), ok, nil
}

func (t *transaction) Insert(id string, body []byte) error {
	if t.exists(id) {
		return document.ErrDocumentExists
	}

	t.stage(write{id: id, body: body})
	return nil
}

func (t *transaction) Put(id string, body []byte) error {
	t.stage(write{id: id, body: body})
	return nil
}

func (t *transaction) PutIfAbsent(id string, body []byte) (bool, error) {
	if t.exists(id) {
		return false, nil
	}

	t.stage(write{id: id, body: body})
	return true, nil
}

func (t *transaction) Delete(id string) error {
	if t.exists(id) {
		t.stage(write{id: id, deleted: true})
	}

	return nil
}

func (t *transaction) exists(id string) bool {
	if w, ok := t.staged[id]; ok {
		return !w.deleted
	}

	_, ok := t.view[id]
	return ok
}

func (t *transaction) stage(w write) {
	w.body = cloneBytes(w.body)
	t.staged[w.id] = w
	t.writes = append(t.writes, w)
}
