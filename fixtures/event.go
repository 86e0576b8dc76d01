package fixtures

import (
	"reflect"

	"github.com/dogmatiq/marshalkit"
	"github.com/dogmatiq/marshalkit/codec"
	"github.com/dogmatiq/marshalkit/codec/json"
)

// UserRegistered is an event used in tests.
type UserRegistered struct {
	Name string
}

// UserRenamed is an event used in tests.
type UserRenamed struct {
	Name string
}

// UserState is a snapshot payload used in tests.
type UserState struct {
	Name    string
	Renames int
}

// Marshaler is a marshaler that supports all of the fixture types.
var Marshaler marshalkit.Marshaler = NewMarshaler()

// NewMarshaler returns a JSON marshaler that supports the fixture types and
// any additional types given.
func NewMarshaler(types ...reflect.Type) marshalkit.Marshaler {
	types = append(
		types,
		reflect.TypeOf(UserRegistered{}),
		reflect.TypeOf(UserRenamed{}),
		reflect.TypeOf(UserState{}),
	)

	m, err := codec.NewMarshaler(
		types,
		[]codec.Codec{
			&json.Codec{},
		},
	)
	if err != nil {
		panic(err)
	}

	return m
}
