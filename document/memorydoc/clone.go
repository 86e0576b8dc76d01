package memorydoc

import (
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/offset"
)

func cloneDocument(doc document.Document) document.Document {
	clone := doc
	clone.Body = cloneBytes(doc.Body)

	if doc.ChangeVector != nil {
		clone.ChangeVector = offset.Merge(doc.ChangeVector, nil)
	}

	return clone
}

func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}

	return append([]byte(nil), data...)
}
