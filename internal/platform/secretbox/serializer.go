package secretbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"gorm.io/gorm/schema"
)

// SerializerName is the gorm tag value for encrypted string columns:
//
//	Token string `gorm:"serializer:encrypted"`
const SerializerName = "encrypted"

var ErrNotInstalled = errors.New("secretbox: no key installed")

var active atomic.Pointer[Box]

func init() {
	schema.RegisterSerializer(SerializerName, Serializer{})
}

// Install sets the box used by the gorm serializer. It must run before any
// row with an encrypted column is read or written.
func Install(b *Box) {
	active.Store(b)
}

// Serializer seals string fields on write and opens them on read.
type Serializer struct{}

func (Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var stored string
	switch v := dbValue.(type) {
	case nil:
	case string:
		stored = v
	case []byte:
		stored = string(v)
	default:
		return fmt.Errorf("secretbox: unsupported column value %T for %s", dbValue, field.Name)
	}
	plain := stored
	if IsSealed(stored) {
		b := active.Load()
		if b == nil {
			return ErrNotInstalled
		}
		var err error
		if plain, err = b.Open(stored); err != nil {
			return fmt.Errorf("%s: %w", field.Name, err)
		}
	}
	field.ReflectValueOf(ctx, dst).SetString(plain)
	return nil
}

func (Serializer) Value(_ context.Context, field *schema.Field, _ reflect.Value, fieldValue interface{}) (interface{}, error) {
	plain, ok := fieldValue.(string)
	if !ok {
		return nil, fmt.Errorf("secretbox: field %s is %T, want string", field.Name, fieldValue)
	}
	if plain == "" {
		return "", nil
	}
	b := active.Load()
	if b == nil {
		return nil, ErrNotInstalled
	}
	return b.Seal(plain)
}
