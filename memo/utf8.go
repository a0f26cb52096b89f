package memo

import (
	"fmt"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// validUTF8 reports the first string in v, including map keys, that is not
// valid UTF-8. encoding/json replaces such bytes with U+FFFD, which would
// give distinct values the same encoding. v must already have marshaled
// successfully, so it holds no cycles.
func validUTF8(v any) error {
	return walkUTF8(reflect.ValueOf(v), "value")
}

func walkUTF8(v reflect.Value, path string) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("%w: %s", ErrInvalidUTF8, path)
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return walkUTF8(v.Elem(), path)
	case reflect.Slice:
		// []byte is base64 encoded and keeps every byte.
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		return walkElems(v, path)
	case reflect.Array:
		return walkElems(v, path)
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			k := iter.Key()
			kpath := path + "[?]"
			if k.Kind() == reflect.String {
				if !utf8.ValidString(k.String()) {
					return fmt.Errorf("%w: key in %s", ErrInvalidUTF8, path)
				}
				kpath = path + "[" + strconv.Quote(k.String()) + "]"
			}
			if err := walkUTF8(iter.Value(), kpath); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if (!f.IsExported() && !f.Anonymous) || f.Tag.Get("json") == "-" {
				continue
			}
			if err := walkUTF8(v.Field(i), path+"."+f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkElems(v reflect.Value, path string) error {
	for i := range v.Len() {
		if err := walkUTF8(v.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}
