package db

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var tDecimal = reflect.TypeOf(decimal.Decimal{})

// NewRegistry returns the default BSON registry extended to store
// decimal.Decimal as Decimal128, so $sum aggregations stay exact.
func NewRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(tDecimal, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(tDecimal, bsoncodec.ValueDecoderFunc(decodeDecimal))
	return reg
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != tDecimal {
		return bsoncodec.ValueEncoderError{Name: "DecimalEncodeValue", Types: []reflect.Type{tDecimal}, Received: val}
	}
	d := val.Interface().(decimal.Decimal)
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return fmt.Errorf("cannot encode %s as Decimal128: %w", d.String(), err)
	}
	return vw.WriteDecimal128(d128)
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != tDecimal {
		return bsoncodec.ValueDecoderError{Name: "DecimalDecodeValue", Types: []reflect.Type{tDecimal}, Received: val}
	}

	var d decimal.Decimal
	switch vr.Type() {
	case bsontype.Decimal128:
		d128, err := vr.ReadDecimal128()
		if err != nil {
			return err
		}
		parsed, err := decimal.NewFromString(d128.String())
		if err != nil {
			return fmt.Errorf("cannot decode Decimal128 %s: %w", d128.String(), err)
		}
		d = parsed
	case bsontype.Double:
		f, err := vr.ReadDouble()
		if err != nil {
			return err
		}
		d = decimal.NewFromFloat(f)
	case bsontype.Int32:
		i, err := vr.ReadInt32()
		if err != nil {
			return err
		}
		d = decimal.NewFromInt32(i)
	case bsontype.Int64:
		i, err := vr.ReadInt64()
		if err != nil {
			return err
		}
		d = decimal.NewFromInt(i)
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		d = parsed
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot decode %v into decimal.Decimal", vr.Type())
	}

	val.Set(reflect.ValueOf(d))
	return nil
}
