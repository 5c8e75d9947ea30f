package badger

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/marmos91/dittoiod/pkg/store/object/internal"
)

// Create creates a new object under wtid.
func (s *BadgerContainer) Create(ctx context.Context, wtid object.TransID, typ object.ObjectType, id object.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !id.IsDefined() {
		return object.NewError(object.ErrInvalidArgument, "cannot create object with undefined id")
	}
	if typ < object.TypeKV || typ > object.TypeBlob {
		return object.NewObjectError(object.ErrInvalidArgument, "unknown object type "+typ.String(), id)
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	record, err := encodeObjectRecord(&objectRecord{Type: typ, Created: wtid})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := checkNotAborted(txn, wtid); err != nil {
			return err
		}

		key := keyObject(id)
		_, err := txn.Get(key)
		if err == nil {
			return object.NewObjectError(object.ErrAlreadyExists, "object already exists", id)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return ioError("failed to check object", err)
		}

		if err := txn.Set(key, record); err != nil {
			return ioError("failed to create object", err)
		}
		if err := txn.Set(keyUndo(wtid, key), nil); err != nil {
			return ioError("failed to log object creation", err)
		}
		return nil
	})
}

// OpenRead opens an existing object for reading.
func (s *BadgerContainer) OpenRead(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	return s.open(ctx, id, internal.ModeRead)
}

// OpenWrite opens an existing object for writing.
func (s *BadgerContainer) OpenWrite(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	return s.open(ctx, id, internal.ModeWrite)
}

func (s *BadgerContainer) open(ctx context.Context, id object.ObjectID, mode internal.Mode) (object.Handle, error) {
	if err := ctx.Err(); err != nil {
		return object.UndefinedHandle, err
	}
	if err := s.checkOpen(); err != nil {
		return object.UndefinedHandle, err
	}

	if _, err := s.loadObject(id); err != nil {
		return object.UndefinedHandle, err
	}
	return s.handles.Open(id, mode), nil
}

// loadObject reads the object record of id.
func (s *BadgerContainer) loadObject(id object.ObjectID) (*objectRecord, error) {
	var rec *objectRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyObject(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return object.NewObjectError(object.ErrNotFound, "object not found", id)
		}
		if err != nil {
			return ioError("failed to read object", err)
		}
		return item.Value(func(val []byte) error {
			r, err := decodeObjectRecord(val)
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
	})
	return rec, err
}

// CloseObject releases a handle.
func (s *BadgerContainer) CloseObject(ctx context.Context, h object.Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.handles.Close(h)
}

// SetScratch stores the side payload of an object.
func (s *BadgerContainer) SetScratch(ctx context.Context, h object.Handle, wtid object.TransID, data []byte, cs object.Checksum) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	id, err := s.handles.Resolve(h, internal.ModeWrite)
	if err != nil {
		return err
	}
	value, err := encodeScratch(data, cs)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := checkNotAborted(txn, wtid); err != nil {
			return err
		}
		return writeVersion(txn, keyValuePrefix(id, kindScratch, nil), wtid, value)
	})
}

// GetScratch returns the side payload visible at rtid.
func (s *BadgerContainer) GetScratch(ctx context.Context, h object.Handle, rtid object.TransID) (*object.Scratch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	id, err := s.handles.Resolve(h, internal.ModeRead)
	if err != nil {
		return nil, err
	}

	raw, err := s.readVersion(keyValuePrefix(id, kindScratch, nil), rtid)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, object.NewObjectError(object.ErrNotFound, "no scratch pad visible at read context", id)
	}
	return decodeScratch(raw)
}

// Set writes key=value, replacing earlier values.
func (s *BadgerContainer) Set(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte) error {
	id, err := s.prepareKVWrite(ctx, h, key)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := checkNotAborted(txn, wtid); err != nil {
			return err
		}
		return writeVersion(txn, keyValuePrefix(id, kindKV, key), wtid, value)
	})
}

// Insert writes key=value only if the key holds no live value.
func (s *BadgerContainer) Insert(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte) error {
	id, err := s.prepareKVWrite(ctx, h, key)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := checkNotAborted(txn, wtid); err != nil {
			return err
		}

		prefix := keyValuePrefix(id, kindKV, key)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		it.Rewind()
		exists := it.Valid()
		it.Close()

		if exists {
			return object.NewObjectError(object.ErrAlreadyExists, "key "+string(key)+" already exists", id)
		}
		return writeVersion(txn, prefix, wtid, value)
	})
}

// Get reads key at rtid.
func (s *BadgerContainer) Get(ctx context.Context, h object.Handle, rtid object.TransID, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	id, err := s.handles.Resolve(h, internal.ModeRead)
	if err != nil {
		return nil, err
	}
	if err := s.checkKV(id); err != nil {
		return nil, err
	}

	raw, err := s.readVersion(keyValuePrefix(id, kindKV, key), rtid)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, object.NewObjectError(object.ErrNotFound, "key "+string(key)+" not found", id)
	}
	return raw, nil
}

func (s *BadgerContainer) prepareKVWrite(ctx context.Context, h object.Handle, key []byte) (object.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return object.UndefinedID, err
	}
	if len(key) == 0 {
		return object.UndefinedID, object.NewError(object.ErrInvalidArgument, "empty key")
	}
	if err := s.checkOpen(); err != nil {
		return object.UndefinedID, err
	}
	id, err := s.handles.Resolve(h, internal.ModeWrite)
	if err != nil {
		return object.UndefinedID, err
	}
	if err := s.checkKV(id); err != nil {
		return object.UndefinedID, err
	}
	return id, nil
}

func (s *BadgerContainer) checkKV(id object.ObjectID) error {
	rec, err := s.loadObject(id)
	if err != nil {
		return err
	}
	if rec.Type != object.TypeKV {
		return object.NewObjectError(object.ErrInvalidArgument, "object is not a KV object", id)
	}
	return nil
}

// readVersion returns the newest version of a value with tid <= rtid, or
// nil if none is visible.
func (s *BadgerContainer) readVersion(prefix []byte, rtid object.TransID) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 1
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(keyValueVersion(prefix, rtid))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return ioError("failed to read value", err)
		}
		if val == nil {
			val = []byte{}
		}
		out = val
		return nil
	})
	return out, err
}

// writeVersion stores one version of a value and its undo entry.
func writeVersion(txn *badger.Txn, prefix []byte, wtid object.TransID, value []byte) error {
	key := keyValueVersion(prefix, wtid)
	if err := txn.Set(key, value); err != nil {
		return ioError("failed to write value", err)
	}
	if err := txn.Set(keyUndo(wtid, key), nil); err != nil {
		return ioError("failed to log write", err)
	}
	return nil
}

func checkNotAborted(txn *badger.Txn, wtid object.TransID) error {
	_, err := txn.Get(keyAborted(wtid))
	if err == nil {
		return object.NewError(object.ErrInvalidArgument, "transaction has been aborted")
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return ioError("failed to check transaction state", err)
	}
	return nil
}
